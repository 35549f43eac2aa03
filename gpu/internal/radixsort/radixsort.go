// SPDX-License-Identifier: Unlicense OR MIT

// Package radixsort implements the stable least-significant-digit radix
// sort spec.md §4.2 (depth sort) and §4.6 (tile sort) both require: a
// multi-pass 8-bit-digit sort over a uint32 sort key, carrying a uint32
// payload (the splat id or intersection record index) along for the ride.
// Each pass is itself a workgroup-local histogram (WG=256, 4
// elements-per-thread, spec.md's stated tile parameters) followed by a
// block-exclusive-scan of the per-workgroup digit counts and a scatter,
// the same block-decomposition shape gpu/internal/scan uses.
package radixsort

import (
	"context"

	"github.com/brush-gfx/brush/gpu/internal/device"
)

// WorkgroupSize and ElementsPerThread match spec.md's stated WG=256, EPT=4
// tile-sort parameters, reused here for the depth sort as well.
const (
	WorkgroupSize    = 256
	ElementsPerThread = 4
	blockElems        = WorkgroupSize * ElementsPerThread
	digitBits         = 8
	digitCount        = 1 << digitBits
	passCount         = 32 / digitBits
)

// SortUint32 stably sorts (keys[i], vals[i]) pairs ascending by key,
// returning new slices; keys and vals are not mutated in place since each
// pass reads from one buffer and scatters into the other.
func SortUint32(ctx context.Context, dev *device.Device, keys, vals []uint32) ([]uint32, []uint32, error) {
	n := len(keys)
	if n == 0 {
		return append([]uint32(nil), keys...), append([]uint32(nil), vals...), nil
	}
	srcK := append([]uint32(nil), keys...)
	srcV := append([]uint32(nil), vals...)
	dstK := make([]uint32, n)
	dstV := make([]uint32, n)

	numBlocks := (n + blockElems - 1) / blockElems
	for pass := 0; pass < passCount; pass++ {
		shift := uint(pass * digitBits)
		digitOf := func(k uint32) int { return int((k >> shift) & (digitCount - 1)) }

		blockHist := make([][digitCount]int, numBlocks)
		err := dev.Dispatch(ctx, numBlocks, func(_ *device.Barrier, wg int) {
			start := wg * blockElems
			end := start + blockElems
			if end > n {
				end = n
			}
			var hist [digitCount]int
			for i := start; i < end; i++ {
				hist[digitOf(srcK[i])]++
			}
			blockHist[wg] = hist
		})
		if err != nil {
			return nil, nil, err
		}

		// Exclusive scan of per-digit, per-block counts: digitBase[d][b] is
		// where block b's d-digit run starts in the destination buffer.
		// Digit-major ordering (all of digit 0 across every block, then
		// digit 1, ...) is what keeps the sort stable across blocks.
		var digitBase [digitCount][]int
		var total int
		for d := 0; d < digitCount; d++ {
			digitBase[d] = make([]int, numBlocks)
			for b := 0; b < numBlocks; b++ {
				digitBase[d][b] = total
				total += blockHist[b][d]
			}
		}

		err = dev.Dispatch(ctx, numBlocks, func(_ *device.Barrier, wg int) {
			start := wg * blockElems
			end := start + blockElems
			if end > n {
				end = n
			}
			var localOffset [digitCount]int
			for d := 0; d < digitCount; d++ {
				localOffset[d] = digitBase[d][wg]
			}
			for i := start; i < end; i++ {
				d := digitOf(srcK[i])
				slot := localOffset[d]
				localOffset[d]++
				dstK[slot] = srcK[i]
				dstV[slot] = srcV[i]
			}
		})
		if err != nil {
			return nil, nil, err
		}

		srcK, dstK = dstK, srcK
		srcV, dstV = dstV, srcV
	}
	return srcK, srcV, nil
}

// FloatSortKey maps a non-negative float32 depth to a monotonic uint32 key
// (depths in spec.md's pipeline are view-space z, always > 0, so the
// sign-handling radix-sort trick for negative floats is unnecessary: the
// raw IEEE-754 bit pattern already orders correctly for positive floats).
func FloatSortKey(f float32) uint32 {
	return float32bits(f)
}
