// SPDX-License-Identifier: Unlicense OR MIT

// Package raster implements spec.md §4.8 (forward alpha-compositing
// rasterization) and §4.9 (its backward pass): one workgroup per tile,
// threads within the workgroup each own one pixel and walk the tile's
// intersection records front-to-back, accumulating premultiplied color
// against the running transmittance.
package raster

import (
	"context"

	"github.com/brush-gfx/brush/gpu/internal/color"
	"github.com/brush-gfx/brush/gpu/internal/device"
	"github.com/brush-gfx/brush/gpu/internal/gmath"
	"github.com/brush-gfx/brush/gpu/internal/isect"
	"github.com/brush-gfx/brush/gpu/internal/project"
)

// TileSize is the 16x16-pixel tile unit shared with package isect.
const TileSize = 16

// AlphaClamp is the spec.md §4.8 per-splat alpha ceiling (0.99) applied
// before compositing, keeping transmittance from collapsing to exactly
// zero mid-splat.
const AlphaClamp = 0.99

// MinTransmittance stops a pixel's compositing loop once transmittance
// drops below this (spec.md §4.8's early-out), since the kept record only
// needs enough precision to reproduce visible contributions.
const MinTransmittance = 1.0 / 255.0

// Forward is the result of stage 8: the rendered image, its per-pixel
// transmittance (cheap enough to always keep — render_mode=rgbd and the
// packed_u32 alpha channel both need it), and, when keepAux is set, the
// heavier per-pixel bookkeeping stage 9 needs.
type Forward struct {
	Width, Height int
	RGB           []float32 // len Width*Height*3, premultiplied accumulated color plus FinalT*background
	Depth         []float32 // len Width*Height, alpha-weighted accumulated depth; only filled when wantDepth is set
	FinalT        []float32 // len Width*Height, transmittance remaining after the last processed splat
	LastContrib   []int32   // len Width*Height, index into the tile's record run of the last splat that contributed (-1 if none); only filled when keepAux is set
}

// NewForward allocates a Forward buffer sized for a width x height image,
// ready to be filled (possibly across several RenderInto calls covering
// disjoint tile ranges, gpu/internal/chunk's per-chunk dispatch).
func NewForward(width, height int, wantDepth, keepAux bool) *Forward {
	out := &Forward{
		Width:  width,
		Height: height,
		RGB:    make([]float32, width*height*3),
		FinalT: make([]float32, width*height),
	}
	if wantDepth {
		out.Depth = make([]float32, width*height)
	}
	if keepAux {
		out.LastContrib = make([]int32, width*height)
		for i := range out.LastContrib {
			out.LastContrib[i] = -1
		}
	}
	return out
}

// Render runs stage 8 over the full image, one workgroup per tile.
// depths, when non-nil, is indexed by compact id (project.CullResult.Depths)
// and triggers accumulation of render_mode=rgbd's depth channel.
func Render(ctx context.Context, dev *device.Device, projected []project.Projected, depths []float32, sorted []isect.Record, tileOffsets []uint32, tilesX, tilesY, width, height int, background [3]float32, keepAux bool) (*Forward, error) {
	out := NewForward(width, height, depths != nil, keepAux)
	if err := RenderInto(ctx, dev, out, projected, depths, sorted, tileOffsets, tilesX, tilesY, background, keepAux, 0, 0, tilesX, tilesY); err != nil {
		return nil, err
	}
	return out, nil
}

// RenderInto runs stage 8 over only the tiles in [minTX,maxTX) x
// [minTY,maxTY), writing into the corresponding region of a
// already-allocated Forward buffer sized for the full image. Package gpu's
// renderTiles calls it once per gpu/internal/chunk rectangle instead of
// calling Render for the whole image at once; only this stage is split
// per chunk, the intersection records and tile offsets it reads cover the
// whole tile grid.
func RenderInto(ctx context.Context, dev *device.Device, out *Forward, projected []project.Projected, depths []float32, sorted []isect.Record, tileOffsets []uint32, tilesX, tilesY int, background [3]float32, keepAux bool, minTX, minTY, maxTX, maxTY int) error {
	width, height := out.Width, out.Height
	numChunkTiles := (maxTX - minTX) * (maxTY - minTY)
	return dev.Dispatch(ctx, numChunkTiles, func(_ *device.Barrier, local int) {
		chunkTilesX := maxTX - minTX
		tx := minTX + local%chunkTilesX
		ty := minTY + local/chunkTilesX
		tile := ty*tilesX + tx
		runStart := tileOffsets[tile]
		runEnd := tileOffsets[tile+1]
		records := sorted[runStart:runEnd]

		px0 := tx * TileSize
		py0 := ty * TileSize
		for ly := 0; ly < TileSize; ly++ {
			py := py0 + ly
			if py >= height {
				continue
			}
			for lx := 0; lx < TileSize; lx++ {
				px := px0 + lx
				if px >= width {
					continue
				}
				renderPixel(out, projected, depths, records, px, py, width, background, keepAux)
			}
		}
	})
}

func renderPixel(out *Forward, projected []project.Projected, depths []float32, records []isect.Record, px, py, width int, background [3]float32, keepAux bool) {
	pixel := gmath.Vec2{float32(px) + 0.5, float32(py) + 0.5}
	var accumR, accumG, accumB, accumD float32
	transmittance := float32(1)
	lastContrib := int32(-1)

	for i, rec := range records {
		sp := projected[rec.CompactGID]
		delta := gmath.Sub2(pixel, sp.Mean2D)
		power := isect.Power(sp.Conic, delta)
		if power < 0 {
			continue
		}
		alpha := sp.Alpha * expNeg(power)
		if alpha > AlphaClamp {
			alpha = AlphaClamp
		}
		if alpha < 1.0/255.0 {
			continue
		}
		weight := alpha * transmittance
		accumR += weight * sp.RGB[0]
		accumG += weight * sp.RGB[1]
		accumB += weight * sp.RGB[2]
		if depths != nil {
			accumD += weight * depths[rec.CompactGID]
		}
		transmittance *= 1 - alpha
		lastContrib = int32(i)
		if transmittance < MinTransmittance {
			break
		}
	}

	r, g, b := color.Composite(accumR, accumG, accumB, transmittance, background)
	idx := py*width + px
	out.RGB[idx*3+0] = r
	out.RGB[idx*3+1] = g
	out.RGB[idx*3+2] = b
	out.FinalT[idx] = transmittance
	if depths != nil {
		out.Depth[idx] = accumD
	}
	if keepAux {
		out.LastContrib[idx] = lastContrib
	}
}

func expNeg(power float32) float32 {
	return expf32(-power)
}
