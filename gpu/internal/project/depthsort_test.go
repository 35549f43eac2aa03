// SPDX-License-Identifier: Unlicense OR MIT

package project

import (
	"context"
	"testing"

	"github.com/brush-gfx/brush/gpu/internal/device"
)

func TestDepthSortOrdersAscending(t *testing.T) {
	cull := &CullResult{
		GlobalFromCompact: []uint32{10, 11, 12, 13},
		Depths:            []float32{9.0, 1.0, 5.0, 3.0},
		NumVisible:        4,
	}
	dev := device.New(2)
	sorted, err := DepthSort(context.Background(), dev, cull)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(sorted.Depths); i++ {
		if sorted.Depths[i] < sorted.Depths[i-1] {
			t.Fatalf("depths not ascending: %v", sorted.Depths)
		}
	}
	want := []uint32{11, 13, 12, 10}
	for i, g := range want {
		if sorted.GlobalFromCompact[i] != g {
			t.Fatalf("global_from_compact[%d] = %d, want %d (full: %v)", i, sorted.GlobalFromCompact[i], g, sorted.GlobalFromCompact)
		}
	}
}

func TestDepthSortEmpty(t *testing.T) {
	cull := &CullResult{NumVisible: 0}
	dev := device.New(2)
	sorted, err := DepthSort(context.Background(), dev, cull)
	if err != nil {
		t.Fatal(err)
	}
	if sorted.NumVisible != 0 {
		t.Fatalf("expected empty result, got NumVisible=%d", sorted.NumVisible)
	}
}
