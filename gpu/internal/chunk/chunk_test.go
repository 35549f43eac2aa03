// SPDX-License-Identifier: Unlicense OR MIT

package chunk

import "testing"

func TestNeedsChunking(t *testing.T) {
	if NeedsChunking(1024, 1024) {
		t.Fatal("exactly MaxChunkDim should not need chunking")
	}
	if !NeedsChunking(1025, 1024) {
		t.Fatal("width exceeding MaxChunkDim should need chunking")
	}
}

func TestBoundsCoversWholeImage(t *testing.T) {
	width, height := 2000, 1500
	rects := Bounds(width, height)
	if len(rects) == 0 {
		t.Fatal("expected at least one chunk")
	}
	covered := make([][]bool, height)
	for i := range covered {
		covered[i] = make([]bool, width)
	}
	for _, r := range rects {
		if r.X1 <= r.X0 || r.Y1 <= r.Y0 {
			t.Fatalf("degenerate rect %+v", r)
		}
		if r.X1-r.X0 > MaxChunkDim || r.Y1-r.Y0 > MaxChunkDim {
			t.Fatalf("chunk %+v exceeds MaxChunkDim", r)
		}
		for y := r.Y0; y < r.Y1; y++ {
			for x := r.X0; x < r.X1; x++ {
				if covered[y][x] {
					t.Fatalf("pixel (%d,%d) covered by more than one chunk", x, y)
				}
				covered[y][x] = true
			}
		}
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !covered[y][x] {
				t.Fatalf("pixel (%d,%d) not covered by any chunk", x, y)
			}
		}
	}
}

func TestTileRangeAlignsToTileSize(t *testing.T) {
	r := Rect{X0: 0, Y0: 0, X1: 1024, Y1: 1024}
	minTX, minTY, maxTX, maxTY := r.TileRange()
	if minTX != 0 || minTY != 0 {
		t.Fatalf("expected tile range to start at 0, got (%d,%d)", minTX, minTY)
	}
	if maxTX != 1024/TileSize || maxTY != 1024/TileSize {
		t.Fatalf("expected tile range end at %d, got (%d,%d)", 1024/TileSize, maxTX, maxTY)
	}
}
