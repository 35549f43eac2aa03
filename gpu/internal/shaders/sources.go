// SPDX-License-Identifier: Unlicense OR MIT

// Package shaders embeds the reference WGSL text for each pipeline stage,
// following the teacher's generated gio.Shader_*/piet.Shader_* constants
// and gogpu-gg's "//go:embed shaders/*.wgsl" pattern (other_examples). The
// text here documents the kernel a real compute backend would load; the
// engine that actually executes each stage in this module is the Go
// implementation dispatched through gpu/internal/device (see DESIGN.md).
package shaders

import _ "embed"

//go:embed project_cull.wgsl
var ProjectCull string

//go:embed depth_sort.wgsl
var DepthSort string

//go:embed project_visible.wgsl
var ProjectVisible string

//go:embed scan.wgsl
var Scan string

//go:embed map_to_intersects.wgsl
var MapToIntersects string

//go:embed tile_offsets.wgsl
var TileOffsets string

//go:embed raster_forward.wgsl
var RasterForward string

//go:embed raster_backward.wgsl
var RasterBackward string

//go:embed project_backward.wgsl
var ProjectBackward string
