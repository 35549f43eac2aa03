// SPDX-License-Identifier: Unlicense OR MIT

package scan

import (
	"context"
	"testing"

	"github.com/brush-gfx/brush/gpu/internal/device"
)

func TestExclusive(t *testing.T) {
	dev := device.New(4)
	in := make([]uint32, 1300) // spans multiple blocks
	for i := range in {
		in[i] = uint32(i % 7)
	}
	got, err := Exclusive(context.Background(), dev, in)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(in)+1 {
		t.Fatalf("len(got) = %d, want %d", len(got), len(in)+1)
	}
	var want uint32
	for i, v := range in {
		if got[i] != want {
			t.Fatalf("got[%d] = %d, want %d", i, got[i], want)
		}
		want += v
	}
	if got[len(in)] != want {
		t.Fatalf("total = %d, want %d", got[len(in)], want)
	}
}

func TestInclusive(t *testing.T) {
	dev := device.New(4)
	in := []uint32{1, 2, 3, 4, 5}
	got, err := Inclusive(context.Background(), dev, in)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{1, 3, 6, 10, 15}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestExclusiveEmpty(t *testing.T) {
	dev := device.New(1)
	got, err := Exclusive[uint32](context.Background(), dev, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("got %v, want [0]", got)
	}
}
