// SPDX-License-Identifier: Unlicense OR MIT

// Package chunk implements spec.md §9's "intended extension" for large
// images: it splits the image into ≤1024x1024-pixel chunks, and the
// forward raster (stage 8) runs once per chunk instead of over the whole
// tile grid in one dispatch. Stages 1-7 (project-and-cull through tile
// offsets) and the backward passes still run once over the whole image;
// they are not split per chunk. This mirrors the same guard shape as the teacher's
// gpu/compute.go render path, which falls back to per-bin-group dispatch
// once widthInBins*heightInBins exceeds its workgroup-size limit, except
// here the limit is MaxChunkDim rather than a GPU workgroup count.
package chunk

// MaxChunkDim is the largest single-dispatch chunk edge length in pixels.
const MaxChunkDim = 1024

// TileSize must match gpu/internal/isect and gpu/internal/raster's tile
// unit; duplicated here (rather than imported) to keep this package
// dependency-free, since it only computes index ranges.
const TileSize = 16

// Rect is a chunk's pixel-space bounding box, [X0,X1) x [Y0,Y1).
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Bounds splits a width x height image into row-major chunks no larger
// than MaxChunkDim on a side, aligned to the tile grid so every chunk's
// edges fall on tile boundaries.
func Bounds(width, height int) []Rect {
	chunkTiles := MaxChunkDim / TileSize
	chunkPixels := chunkTiles * TileSize
	var rects []Rect
	for y0 := 0; y0 < height; y0 += chunkPixels {
		y1 := y0 + chunkPixels
		if y1 > height {
			y1 = height
		}
		for x0 := 0; x0 < width; x0 += chunkPixels {
			x1 := x0 + chunkPixels
			if x1 > width {
				x1 = width
			}
			rects = append(rects, Rect{X0: x0, Y0: y0, X1: x1, Y1: y1})
		}
	}
	return rects
}

// TileRange converts a pixel-space Rect into the half-open tile-index
// range [MinTX,MaxTX) x [MinTY,MaxTY) raster.RenderInto expects.
func (r Rect) TileRange() (minTX, minTY, maxTX, maxTY int) {
	minTX = r.X0 / TileSize
	minTY = r.Y0 / TileSize
	maxTX = (r.X1 + TileSize - 1) / TileSize
	maxTY = (r.Y1 + TileSize - 1) / TileSize
	return
}

// NeedsChunking reports whether an image exceeds the single-dispatch
// tile-grid limit and should be rendered chunk-by-chunk.
func NeedsChunking(width, height int) bool {
	return width > MaxChunkDim || height > MaxChunkDim
}
