// SPDX-License-Identifier: Unlicense OR MIT

// Package gpu implements a differentiable rasterizer for collections of
// anisotropic 3D Gaussians ("splats"): given a camera and a splat scene it
// produces a 2D image (render) and, given an upstream image gradient, the
// per-splat parameter gradients that produced it (backward).
//
// The pipeline is ten ordered stages (internal/project, internal/scan,
// internal/isect, internal/radixsort, internal/raster) dispatched over
// internal/device, a workgroup-per-goroutine compute engine with no real
// GPU underneath it. See gpu/internal/shaders for the reference WGSL
// shape each stage's Go implementation mirrors.
package gpu
