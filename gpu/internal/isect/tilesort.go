// SPDX-License-Identifier: Unlicense OR MIT

package isect

import (
	"context"

	"github.com/brush-gfx/brush/gpu/internal/device"
	"github.com/brush-gfx/brush/gpu/internal/radixsort"
)

// TileSort runs stage 6 (spec.md §4.6): stably sorts the intersection
// records by tile_id, using the same radix sort as depth sort. Stability
// is what preserves each tile's records in depth order (they arrived in
// depth-sorted compact-gid order out of map-to-intersects).
func TileSort(ctx context.Context, dev *device.Device, records []Record) ([]Record, error) {
	n := len(records)
	keys := make([]uint32, n)
	gids := make([]uint32, n)
	for i, r := range records {
		keys[i] = r.TileID
		gids[i] = r.CompactGID
	}
	sortedKeys, sortedGids, err := radixsort.SortUint32(ctx, dev, keys, gids)
	if err != nil {
		return nil, err
	}
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{TileID: sortedKeys[i], CompactGID: sortedGids[i]}
	}
	return out, nil
}
