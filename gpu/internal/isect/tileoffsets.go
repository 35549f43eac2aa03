// SPDX-License-Identifier: Unlicense OR MIT

package isect

// TileOffsets builds spec.md §4.7's tile_offsets[num_tiles+1] lower-bound
// table from the tile-sorted intersection records: tile_offsets[t] is the
// index of the first record whose tile_id >= t, so tile t's records are
// [tile_offsets[t], tile_offsets[t+1]) (empty for a tile with no records),
// with tile_offsets[numTiles] == len(sorted).
//
// sorted must already be stable-sorted by TileID ascending (the output of
// the stage-6 tile sort); this just locates the run boundaries, which is
// a linear scan rather than the per-tile binary search a single GPU thread
// would do, since every boundary is visited here regardless.
func TileOffsets(sorted []Record, numTiles int) []uint32 {
	offsets := make([]uint32, numTiles+1)
	cur := 0
	for i, r := range sorted {
		for cur <= int(r.TileID) {
			offsets[cur] = uint32(i)
			cur++
		}
	}
	for cur <= numTiles {
		offsets[cur] = uint32(len(sorted))
		cur++
	}
	return offsets
}
