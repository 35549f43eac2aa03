// SPDX-License-Identifier: Unlicense OR MIT

package isect

import (
	"reflect"
	"testing"
)

func TestTileOffsetsBasic(t *testing.T) {
	sorted := []Record{
		{TileID: 0, CompactGID: 3},
		{TileID: 0, CompactGID: 1},
		{TileID: 2, CompactGID: 0},
		{TileID: 2, CompactGID: 2},
		{TileID: 2, CompactGID: 4},
	}
	offsets := TileOffsets(sorted, 4)
	want := []uint32{0, 2, 2, 5, 5}
	if !reflect.DeepEqual(offsets, want) {
		t.Fatalf("got %v, want %v", offsets, want)
	}
}

func TestTileOffsetsEmpty(t *testing.T) {
	offsets := TileOffsets(nil, 3)
	want := []uint32{0, 0, 0, 0}
	if !reflect.DeepEqual(offsets, want) {
		t.Fatalf("got %v, want %v", offsets, want)
	}
}

func TestTileOffsetsMonotonicAndTotal(t *testing.T) {
	sorted := []Record{
		{TileID: 1, CompactGID: 0},
		{TileID: 1, CompactGID: 1},
		{TileID: 1, CompactGID: 2},
		{TileID: 3, CompactGID: 3},
	}
	offsets := TileOffsets(sorted, 5)
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			t.Fatalf("tile_offsets must be non-decreasing, got %v", offsets)
		}
	}
	if int(offsets[len(offsets)-1]) != len(sorted) {
		t.Fatalf("final entry %d should equal record count %d", offsets[len(offsets)-1], len(sorted))
	}
}
