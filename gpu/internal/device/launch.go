// SPDX-License-Identifier: Unlicense OR MIT

package device

// MaxDispatchDim is the per-dimension workgroup-count limit spec.md §4.11
// names (65535), matching common compute-shader dispatch limits.
const MaxDispatchDim = 65535

// LaunchDims computes the dispatch dimensions for count threads at wgSize
// threads per workgroup (spec.md §4.11's "kernel-launch helper": a trivial
// shader that reads the current thread count and computes
// ceil(count/wg_size), splitting into 2D when the 1D count would exceed
// MaxDispatchDim). Host code in this engine doesn't face an actual
// dispatch-dimension limit (workgroups are just loop iterations), but
// LaunchDims is kept as the documented sizing rule any future real-GPU
// Device implementation must also honor.
func LaunchDims(count, wgSize int) (x, y int) {
	if count <= 0 {
		return 0, 0
	}
	n := (count + wgSize - 1) / wgSize
	if n <= MaxDispatchDim {
		return n, 1
	}
	y = (n + MaxDispatchDim - 1) / MaxDispatchDim
	x = (n + y - 1) / y
	return x, y
}

// Total1D returns the flattened workgroup count x*y for a LaunchDims result,
// the count this engine's Dispatch actually loops over.
func Total1D(x, y int) int { return x * y }
