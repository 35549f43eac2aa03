// SPDX-License-Identifier: Unlicense OR MIT

package isect

import (
	"context"
	"sync/atomic"

	"github.com/brush-gfx/brush/gpu/internal/device"
	"github.com/brush-gfx/brush/gpu/internal/gmath"
)

// Record is the packed (tile_id, compact_gid) intersection record spec.md
// §3 calls isect_ids[max_intersects] / isect_gids[max_intersects].
type Record struct {
	TileID     uint32
	CompactGID uint32
}

// VisibleSplat is the subset of a project.Projected record map-to-intersects
// needs, named locally so this package doesn't import project (which
// already imports isect).
type VisibleSplat struct {
	Mean2D    gmath.Vec2
	Extent    gmath.Vec2
	Conic     gmath.Mat2Sym
	Threshold float32
}

// MapResult is the output of stage 5: the packed intersection records and
// whether any writes were dropped for exceeding MaxIntersects (spec.md §9).
type MapResult struct {
	Records   []Record
	Truncated bool
}

// MapToIntersects runs stage 5 (spec.md §4.5): one thread per compact id,
// re-walking the same tile set stage 3 counted (via ForEachTile, the
// shared traversal) and scattering (tile_id, compact_gid) into the
// cum_hit_counts[c]-offset slot for each hit. Writes past maxIntersects are
// silently dropped, matching spec.md §9's "truncation drops the furthest
// excess splats silently" decision.
func MapToIntersects(ctx context.Context, dev *device.Device, splats []VisibleSplat, cumHitCounts []uint32, tilesX, tilesY int, maxIntersects uint32) (*MapResult, error) {
	nv := len(splats)
	total := cumHitCounts[nv]
	bufLen := total
	if bufLen > maxIntersects {
		bufLen = maxIntersects
	}
	records := make([]Record, bufLen)
	var truncated atomic.Bool
	if total > maxIntersects {
		truncated.Store(true)
	}

	const wgSize = 256
	numWG := (nv + wgSize - 1) / wgSize
	err := dev.Dispatch(ctx, numWG, func(_ *device.Barrier, wg int) {
		start := wg * wgSize
		end := start + wgSize
		if end > nv {
			end = nv
		}
		for c := start; c < end; c++ {
			s := splats[c]
			base := cumHitCounts[c]
			k := uint32(0)
			ForEachTile(s.Mean2D, s.Extent, s.Conic, s.Threshold, tilesX, tilesY, func(tileID int) {
				slot := base + k
				k++
				if slot >= maxIntersects {
					truncated.Store(true)
					return
				}
				records[slot] = Record{TileID: uint32(tileID), CompactGID: uint32(c)}
			})
		}
	})
	if err != nil {
		return nil, err
	}
	return &MapResult{Records: records, Truncated: truncated.Load()}, nil
}
