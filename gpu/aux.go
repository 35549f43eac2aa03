// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"github.com/brush-gfx/brush/gpu/internal/isect"
	"github.com/brush-gfx/brush/gpu/internal/project"
	"github.com/brush-gfx/brush/gpu/internal/raster"
	"github.com/brush-gfx/brush/splat"
)

// RenderAux is the auxiliary bundle spec.md §6 requires backward() to be
// given: exactly the buffers from §3 that survive a forward call into a
// later backward call. A nil RenderAux (opts.KeepAuxForBackward == false)
// is a valid render() result; passing it to Backward is a programmer
// error (spec.md §7) and panics.
type RenderAux struct {
	params *splat.Params
	cam    *splat.Camera

	cull      *project.CullResult
	visible   *project.VisibleResult
	sorted    []isect.Record
	tileOffsets []uint32
	forward   *raster.Forward

	// Truncated reports whether the intersection list exceeded
	// opts.MaxIntersects and was silently clipped (spec.md §7/§9): a
	// resource-exhaustion condition the caller should notice and react to
	// by re-rendering with a larger cap, not an error return, per the
	// spec's "no exceptions" design.
	Truncated bool
}
