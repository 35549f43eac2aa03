// SPDX-License-Identifier: Unlicense OR MIT

// Package device is this module's single compute-kernel execution engine.
// It is adapted from the teacher's gpu/internal/driver.Device interface,
// trimmed to the compute-only subset this core needs (no textures,
// framebuffers or blending), and its CPU dispatcher is grounded in the
// dispatch/barrier/sync contract gpu/compute.go documents for the
// teacher's own CPU-fallback path (newDispatcher, (*dispatcher).Dispatch,
// Barrier, Sync) — the only execution path this module has, not a
// fallback beside a GPU one (see DESIGN.md Open Questions).
package device

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Barrier stands in for a GPU workgroup barrier. Each workgroup in this
// engine runs as a single goroutine that executes its local threads
// serially, so there is no actual cross-thread race within a workgroup to
// guard against; Barrier is kept as an explicit call site so stage code
// reads the same shape as a real compute kernel (load batch, Barrier,
// consume batch — spec.md §4.8).
type Barrier struct{}

// Wait is a no-op in this engine; see the Barrier doc comment.
func (*Barrier) Wait() {}

// WorkgroupFunc is the body of one compute-shader workgroup invocation.
type WorkgroupFunc func(b *Barrier, workgroup int)

// Device dispatches compute kernels as one goroutine per workgroup, capped
// at a worker pool the size of the machine, mirroring the teacher's
// newDispatcher(runtime.NumCPU()).
type Device struct {
	workers int
}

// New returns a Device with the given worker cap. A non-positive workers
// defaults to runtime.NumCPU(), matching the teacher's dispatcher sizing.
func New(workers int) *Device {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Device{workers: workers}
}

// Dispatch runs fn once per workgroup in [0, numWorkgroups), with at most
// d.workers running concurrently. It returns once every workgroup has
// completed (golang.org/x/sync/errgroup.Group.Wait), which is this
// engine's stand-in for the teacher's command-encoder write-read ordering
// between stages (spec.md §5: "between stages, full write-read ordering is
// guaranteed").
func (d *Device) Dispatch(ctx context.Context, numWorkgroups int, fn WorkgroupFunc) error {
	if numWorkgroups <= 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for wg := 0; wg < numWorkgroups; wg++ {
		wg := wg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(new(Barrier), wg)
			return nil
		})
	}
	return g.Wait()
}

// Buffer is a device-buffer handle in the sense of spec.md §9's design
// note ("Hosts implementing this design should expose device-buffer
// handles plus descriptors"). In this engine there is no separate host
// and device address space, so Buffer is a thin named wrapper around a
// Go slice rather than a copy-in/copy-out abstraction.
type Buffer[T any] struct {
	Data []T
}

// NewBuffer allocates a zeroed buffer of n elements.
func NewBuffer[T any](n int) *Buffer[T] {
	return &Buffer[T]{Data: make([]T, n)}
}
