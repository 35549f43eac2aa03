// SPDX-License-Identifier: Unlicense OR MIT

package project

import (
	"context"

	"github.com/brush-gfx/brush/gpu/internal/device"
	"github.com/brush-gfx/brush/gpu/internal/radixsort"
)

// DepthSort runs stage 2 (spec.md §4.2): stably sorts the survivors of
// Cull by ascending view-space depth, using the WG=256/EPT=4 radix sort.
// Every later per-compact-id stage (project-visible, map-to-intersects)
// walks ids in this depth order, and the downstream tile sort (stage 6)
// being stable is what lets the front-to-back order survive regrouping by
// tile: a splat's position in the depth-sorted compact array is also its
// position within any tile's run of intersection records.
func DepthSort(ctx context.Context, dev *device.Device, cull *CullResult) (*CullResult, error) {
	n := cull.NumVisible
	keys := make([]uint32, n)
	for i, d := range cull.Depths {
		keys[i] = radixsort.FloatSortKey(d)
	}
	_, sortedIdx, err := radixsort.SortUint32(ctx, dev, keys, sequentialIndices(n))
	if err != nil {
		return nil, err
	}

	newGlobal := make([]uint32, n)
	newDepths := make([]float32, n)
	for i, idx := range sortedIdx {
		newGlobal[i] = cull.GlobalFromCompact[idx]
		newDepths[i] = cull.Depths[idx]
	}
	return &CullResult{
		GlobalFromCompact: newGlobal,
		Depths:            newDepths,
		NumVisible:        n,
	}, nil
}

func sequentialIndices(n int) []uint32 {
	idx := make([]uint32, n)
	for i := range idx {
		idx[i] = uint32(i)
	}
	return idx
}
