// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"context"
	"fmt"

	"github.com/brush-gfx/brush/gpu/internal/chunk"
	"github.com/brush-gfx/brush/gpu/internal/device"
	"github.com/brush-gfx/brush/gpu/internal/isect"
	"github.com/brush-gfx/brush/gpu/internal/project"
	"github.com/brush-gfx/brush/gpu/internal/raster"
	"github.com/brush-gfx/brush/gpu/internal/scan"
	"github.com/brush-gfx/brush/splat"
)

// renderTiles runs stage 8 over the whole image, splitting into
// gpu/internal/chunk's ≤1024x1024 chunks when the image exceeds that
// (spec.md §9's chunked-rendering extension); a single-chunk image just
// calls raster.Render directly.
func renderTiles(ctx context.Context, dev *device.Device, projected []project.Projected, depths []float32, sorted []isect.Record, tileOffsets []uint32, tilesX, tilesY, width, height int, background [3]float32, keepAux bool) (*raster.Forward, error) {
	if !chunk.NeedsChunking(width, height) {
		return raster.Render(ctx, dev, projected, depths, sorted, tileOffsets, tilesX, tilesY, width, height, background, keepAux)
	}
	out := raster.NewForward(width, height, depths != nil, keepAux)
	for _, rect := range chunk.Bounds(width, height) {
		minTX, minTY, maxTX, maxTY := rect.TileRange()
		if err := raster.RenderInto(ctx, dev, out, projected, depths, sorted, tileOffsets, tilesX, tilesY, background, keepAux, minTX, minTY, maxTX, maxTY); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// runForward executes spec.md §4's stages 1-8 in order. With
// opts.DebugValidation set it checks invariants after three stages: cull
// (permutation integrity), the prefix sum (intersection-count
// conservation) and tile offsets (non-decreasing offsets ending at the
// record count, and per-tile depth order). It returns the
// rendered pixels (always) and the aux bundle (only when requested).
func runForward(ctx context.Context, dev *device.Device, params *splat.Params, cam *splat.Camera, opts splat.Options, stats *Stats) (*raster.Forward, *RenderAux, error) {
	sw := startStopwatch()
	cull, err := project.Cull(ctx, dev, params, cam)
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: cull: %w", err)
	}
	stats.Cull = sw.elapsed()
	if opts.DebugValidation {
		if err := validatePermutation(cull.GlobalFromCompact, params.N()); err != nil {
			return nil, nil, fmt.Errorf("gpu: debug-validation after cull (I1): %w", err)
		}
	}

	sw = startStopwatch()
	cull, err = project.DepthSort(ctx, dev, cull)
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: depth sort: %w", err)
	}
	stats.DepthSort = sw.elapsed()

	sw = startStopwatch()
	visible, err := project.Visible(ctx, dev, params, cam, cull)
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: project-visible: %w", err)
	}
	stats.Visible = sw.elapsed()

	sw = startStopwatch()
	cumHitCounts, err := scan.Exclusive(ctx, dev, visible.IntersectCounts[1:])
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: prefix sum: %w", err)
	}
	stats.Scan = sw.elapsed()
	totalIntersects := cumHitCounts[len(cumHitCounts)-1]
	if opts.DebugValidation {
		var sum uint32
		for _, c := range visible.IntersectCounts[1:] {
			sum += c
		}
		if sum != totalIntersects {
			return nil, nil, fmt.Errorf("gpu: debug-validation after scan (I3): sum(counts)=%d, total=%d", sum, totalIntersects)
		}
	}

	maxIntersects := opts.MaxIntersects
	if maxIntersects == 0 {
		maxIntersects = splat.EstimateMaxIntersects(visible.TilesX, visible.TilesY, cull.NumVisible)
	}

	visSplats := make([]isect.VisibleSplat, len(visible.Projected))
	for i, p := range visible.Projected {
		visSplats[i] = isect.VisibleSplat{
			Mean2D:    p.Mean2D,
			Extent:    p.Extent(),
			Conic:     p.Conic,
			Threshold: p.Threshold(),
		}
	}

	sw = startStopwatch()
	mapped, err := isect.MapToIntersects(ctx, dev, visSplats, cumHitCounts, visible.TilesX, visible.TilesY, maxIntersects)
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: map-to-intersects: %w", err)
	}
	stats.MapToIntersects = sw.elapsed()

	sw = startStopwatch()
	sorted, err := isect.TileSort(ctx, dev, mapped.Records)
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: tile sort: %w", err)
	}
	stats.TileSort = sw.elapsed()

	sw = startStopwatch()
	numTiles := visible.TilesX * visible.TilesY
	tileOffsets := isect.TileOffsets(sorted, numTiles)
	stats.TileOffsets = sw.elapsed()
	if opts.DebugValidation {
		if err := validateTileOffsets(tileOffsets, len(sorted)); err != nil {
			return nil, nil, fmt.Errorf("gpu: debug-validation after tile-offsets (I4): %w", err)
		}
		if err := validateDepthOrder(sorted, tileOffsets, cull.Depths); err != nil {
			return nil, nil, fmt.Errorf("gpu: debug-validation after tile-offsets (I-P4): %w", err)
		}
	}

	var depths []float32
	if opts.RenderMode == splat.RenderModeRGBD {
		depths = cull.Depths
	}
	sw = startStopwatch()
	fwd, err := renderTiles(ctx, dev, visible.Projected, depths, sorted, tileOffsets, visible.TilesX, visible.TilesY, cam.ImgWidth, cam.ImgHeight, cam.Background, opts.KeepAuxForBackward)
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: raster forward: %w", err)
	}
	stats.Raster = sw.elapsed()
	stats.NumVisible = cull.NumVisible
	stats.NumIntersects = len(sorted)

	var aux *RenderAux
	if opts.KeepAuxForBackward {
		aux = &RenderAux{
			params:      params,
			cam:         cam,
			cull:        cull,
			visible:     visible,
			sorted:      sorted,
			tileOffsets: tileOffsets,
			forward:     fwd,
			Truncated:   mapped.Truncated,
		}
	}
	return fwd, aux, nil
}

func validatePermutation(globalFromCompact []uint32, n int) error {
	seen := make(map[uint32]bool, len(globalFromCompact))
	for _, g := range globalFromCompact {
		if int(g) >= n {
			return fmt.Errorf("global id %d out of range [0,%d)", g, n)
		}
		if seen[g] {
			return fmt.Errorf("duplicate global id %d in global_from_compact_gid", g)
		}
		seen[g] = true
	}
	return nil
}

func validateTileOffsets(offsets []uint32, total int) error {
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return fmt.Errorf("tile_offsets not non-decreasing at %d", i)
		}
	}
	if int(offsets[len(offsets)-1]) != total {
		return fmt.Errorf("tile_offsets final entry %d != intersection count %d", offsets[len(offsets)-1], total)
	}
	return nil
}

func validateDepthOrder(sorted []isect.Record, tileOffsets []uint32, depths []float32) error {
	for t := 0; t+1 < len(tileOffsets); t++ {
		start, end := tileOffsets[t], tileOffsets[t+1]
		for i := start + 1; i < end; i++ {
			prev := depths[sorted[i-1].CompactGID]
			cur := depths[sorted[i].CompactGID]
			if cur < prev {
				return fmt.Errorf("tile %d: depth decreased at record %d (%.6f < %.6f)", t, i, cur, prev)
			}
		}
	}
	return nil
}
