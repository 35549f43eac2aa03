// SPDX-License-Identifier: Unlicense OR MIT

package isect

import (
	"context"
	"sort"
	"testing"

	"github.com/brush-gfx/brush/gpu/internal/device"
)

func TestTileSortStableByTileID(t *testing.T) {
	records := []Record{
		{TileID: 2, CompactGID: 0},
		{TileID: 0, CompactGID: 1},
		{TileID: 2, CompactGID: 2},
		{TileID: 1, CompactGID: 3},
		{TileID: 0, CompactGID: 4},
	}
	dev := device.New(2)
	sorted, err := TileSort(context.Background(), dev, records)
	if err != nil {
		t.Fatal(err)
	}
	if !sort.SliceIsSorted(sorted, func(i, j int) bool { return sorted[i].TileID < sorted[j].TileID }) {
		t.Fatalf("result not sorted by tile id: %v", sorted)
	}
	// within tile 0, original relative order (CompactGID 1 before 4) must
	// survive since this is a stable sort.
	var tile0 []uint32
	for _, r := range sorted {
		if r.TileID == 0 {
			tile0 = append(tile0, r.CompactGID)
		}
	}
	if len(tile0) != 2 || tile0[0] != 1 || tile0[1] != 4 {
		t.Fatalf("expected stable order [1 4] within tile 0, got %v", tile0)
	}
}

func TestTileSortEmpty(t *testing.T) {
	dev := device.New(2)
	sorted, err := TileSort(context.Background(), dev, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(sorted) != 0 {
		t.Fatalf("expected empty result, got %v", sorted)
	}
}
