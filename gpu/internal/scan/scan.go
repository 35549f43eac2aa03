// SPDX-License-Identifier: Unlicense OR MIT

// Package scan implements the block-wise exclusive/inclusive prefix sum of
// spec.md §4.4 (splat_cum_hit_counts; gpu/internal/radixsort computes its
// own digit-count offsets and does not use this package): a three-pass
// block scan, block-sums scan, and block-add, the
// classic GPU-style decomposition of a full-array scan into
// workgroup-local pieces so each pass only ever touches BlockSize
// contiguous elements.
package scan

import (
	"context"

	"github.com/brush-gfx/brush/gpu/internal/device"
	"golang.org/x/exp/constraints"
)

// BlockSize is the workgroup-local scan width (spec.md's prefix-sum
// block, sized to the largest realistic per-workgroup shared-memory scan).
const BlockSize = 512

// Number constrains scan to types addable via +.
type Number interface {
	constraints.Integer | constraints.Float
}

// Inclusive computes the inclusive prefix sum of in, writing it to a new
// slice of the same length.
func Inclusive[T Number](ctx context.Context, dev *device.Device, in []T) ([]T, error) {
	out := make([]T, len(in))
	if err := run(ctx, dev, in, out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// Exclusive computes the exclusive prefix sum of in (out[0] == 0), writing
// it to a new slice of length len(in)+1 whose last element is the total
// sum, matching the splat_cum_hit_counts layout of spec.md §3.
func Exclusive[T Number](ctx context.Context, dev *device.Device, in []T) ([]T, error) {
	out := make([]T, len(in)+1)
	if len(in) == 0 {
		return out, nil
	}
	if err := run(ctx, dev, in, out[:len(in)], false); err != nil {
		return nil, err
	}
	out[len(in)] = out[len(in)-1] + in[len(in)-1]
	return out, nil
}

// run performs the three-pass block scan. Stage A scans each BlockSize
// chunk of in independently into out (inclusive-per-block). Stage B scans
// the per-block totals (sequentially; the number of blocks is small
// compared to len(in)). Stage C adds each block's exclusive total back
// into every element of that block, and if inclusive is false, shifts the
// whole result right by one to produce the exclusive form.
func run[T Number](ctx context.Context, dev *device.Device, in, out []T, inclusive bool) error {
	n := len(in)
	if n == 0 {
		return nil
	}
	numBlocks := (n + BlockSize - 1) / BlockSize
	blockTotals := make([]T, numBlocks)

	err := dev.Dispatch(ctx, numBlocks, func(_ *device.Barrier, wg int) {
		start := wg * BlockSize
		end := start + BlockSize
		if end > n {
			end = n
		}
		var acc T
		for i := start; i < end; i++ {
			acc += in[i]
			out[i] = acc
		}
		blockTotals[wg] = acc
	})
	if err != nil {
		return err
	}

	blockOffsets := make([]T, numBlocks)
	var running T
	for b := 0; b < numBlocks; b++ {
		blockOffsets[b] = running
		running += blockTotals[b]
	}

	err = dev.Dispatch(ctx, numBlocks, func(_ *device.Barrier, wg int) {
		start := wg * BlockSize
		end := start + BlockSize
		if end > n {
			end = n
		}
		offset := blockOffsets[wg]
		if offset == 0 {
			return
		}
		for i := start; i < end; i++ {
			out[i] += offset
		}
	})
	if err != nil {
		return err
	}

	if !inclusive {
		var prev T
		for i := 0; i < n; i++ {
			cur := out[i]
			out[i] = prev
			prev = cur
		}
	}
	return nil
}
