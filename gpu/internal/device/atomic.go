// SPDX-License-Identifier: Unlicense OR MIT

package device

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// AtomicAddFloat32 accumulates delta into *addr. Different workgroups (tiles)
// can legitimately contribute to the same splat's gradient slot
// concurrently, unlike the serial-within-workgroup case Barrier documents,
// so this one genuinely needs synchronization. spec.md §3/§9: "Strategy A
// (hardware float atomics...); Strategy B (integer CAS loop aliasing the
// float bit pattern)". This engine has no hardware float atomic to call,
// so it always takes Strategy B, implemented over sync/atomic's uint32
// compare-and-swap.
func AtomicAddFloat32(addr *float32, delta float32) {
	bits := (*uint32)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint32(bits)
		newV := math.Float32bits(math.Float32frombits(old) + delta)
		if atomic.CompareAndSwapUint32(bits, old, newV) {
			return
		}
	}
}
