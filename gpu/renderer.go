// SPDX-License-Identifier: Unlicense OR MIT

// Package gpu is the small façade spec.md §6 describes: render() and
// backward() over a splat scene, plus the render_aux bundle that carries
// state between them. It is adapted from the teacher's top-level compute
// type (gpu/compute.go), trimmed to this core's ten-stage pipeline and
// with the teacher's OpenGL/Vulkan/Direct3D/CPU-fallback backend selection
// replaced by a single native Go dispatch engine (gpu/internal/device),
// since this module never drives a real display surface.
package gpu

import (
	"context"
	"fmt"
	"image/color"

	gpucolor "github.com/brush-gfx/brush/gpu/internal/color"
	"github.com/brush-gfx/brush/gpu/internal/device"
	"github.com/brush-gfx/brush/splat"
)

// Renderer is the core's entry point: one Renderer per concurrent render
// pipeline, holding the compute-dispatch engine and the last call's
// profiling stats, mirroring the teacher's *compute holding its dispatcher
// and timers across Frame calls.
type Renderer struct {
	dev   *device.Device
	stats Stats
}

// New returns a Renderer dispatching workgroups across workers goroutines
// at a time; workers <= 0 defaults to runtime.NumCPU() (device.New).
func New(workers int) *Renderer {
	return &Renderer{dev: device.New(workers)}
}

// Image is render()'s output (spec.md §6): which of RGB/Depth/Packed are
// populated is selected by opts.RenderMode (RGB alone, RGB and Depth, or
// Packed alone).
type Image struct {
	Width, Height int
	Mode          splat.RenderMode

	RGB    []float32 // len Width*Height*3; populated for RenderModeRGB and RenderModeRGBD
	Depth  []float32 // len Width*Height; populated only for RenderModeRGBD
	Packed []uint32  // len Width*Height; populated only for RenderModePackedU32, wire layout R|G<<8|B<<16|A<<24
}

// At returns pixel (x,y) as color.NRGBA64-range-independent linear RGBA,
// a convenience for tests and debugging; it does not apply any of the
// teacher's sRGB encode step (this core operates entirely in linear
// space, spec.md never mentioning gamma).
func (img *Image) At(x, y int) (r, g, b, a float32) {
	idx := y*img.Width + x
	switch img.Mode {
	case splat.RenderModePackedU32:
		p := img.Packed[idx]
		return float32(p&0xff) / 255, float32((p>>8)&0xff) / 255, float32((p>>16)&0xff) / 255, float32((p>>24)&0xff) / 255
	default:
		return img.RGB[idx*3+0], img.RGB[idx*3+1], img.RGB[idx*3+2], 1
	}
}

// NRGBAAt packs a pixel into the standard library's color.NRGBA, clamping
// to [0,255] the way gpu/internal/color.PackU32 does.
func (img *Image) NRGBAAt(x, y int) color.NRGBA {
	r, g, b, a := img.At(x, y)
	p := gpucolor.PackU32(r, g, b, a)
	return color.NRGBA{R: uint8(p), G: uint8(p >> 8), B: uint8(p >> 16), A: uint8(p >> 24)}
}

// Render runs the forward pipeline (spec.md §4 stages 1-8) and packs the
// result per opts.RenderMode. It panics on the programmer-error conditions
// spec.md §7 lists (mismatched buffer lengths): call params.Validate()
// first if the input is not already known-good.
func (r *Renderer) Render(ctx context.Context, params *splat.Params, cam *splat.Camera, opts splat.Options) (*Image, *RenderAux, error) {
	if err := params.Validate(); err != nil {
		panic(fmt.Sprintf("gpu: Render: %v", err))
	}
	var stats Stats
	fwd, aux, err := runForward(ctx, r.dev, params, cam, opts, &stats)
	if err != nil {
		return nil, nil, err
	}
	r.stats = stats

	img := &Image{Width: cam.ImgWidth, Height: cam.ImgHeight, Mode: opts.RenderMode}
	switch opts.RenderMode {
	case splat.RenderModeRGB:
		img.RGB = fwd.RGB
	case splat.RenderModeRGBD:
		img.RGB = fwd.RGB
		img.Depth = fwd.Depth
	case splat.RenderModePackedU32:
		img.Packed = make([]uint32, cam.ImgWidth*cam.ImgHeight)
		for i := range img.Packed {
			alpha := 1 - fwd.FinalT[i]
			img.Packed[i] = gpucolor.PackU32(fwd.RGB[i*3+0], fwd.RGB[i*3+1], fwd.RGB[i*3+2], alpha)
		}
	default:
		panic(fmt.Sprintf("gpu: Render: unknown render mode %d", opts.RenderMode))
	}
	return img, aux, nil
}

// Backward runs stages 9 and 10 (spec.md §4.9/§4.10) against a previous
// Render call's aux bundle. dLdImage must have the same layout as the
// forward RGB buffer (width*height*3, in pixel-row-major order) regardless
// of the render mode used for the forward call: the gradient is always
// with respect to the straight (non-packed) linear RGB image.
func (r *Renderer) Backward(ctx context.Context, aux *RenderAux, dLdImage []float32) (*splat.Grads, error) {
	return runBackward(ctx, r.dev, aux, dLdImage)
}

// Stats returns the per-stage timings from the most recent Render call.
func (r *Renderer) Stats() Stats { return r.stats }
