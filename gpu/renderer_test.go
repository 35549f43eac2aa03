// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"context"
	"math"
	"testing"

	"github.com/brush-gfx/brush/splat"
)

func identityCamera(width, height int) *splat.Camera {
	return &splat.Camera{
		Viewmat: [4][4]float32{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
			{0, 0, 0, 1},
		},
		Focal:       [2]float32{float32(width), float32(height)},
		PixelCenter: [2]float32{float32(width) / 2, float32(height) / 2},
		ImgWidth:    width,
		ImgHeight:   height,
		Background:  [3]float32{0, 0, 0},
	}
}

// whiteParams builds a single, roughly-opaque white splat at the given
// view-space depth, centered on the camera axis.
func whiteParams(depth float32) *splat.Params {
	// Eval adds a fixed +0.5 offset per channel (gpu/internal/sh), so a
	// DC coefficient of (1-0.5)/c0 drives each channel to ~1.
	const c0 = 0.28209479177387814
	dc := float32((1 - 0.5) / c0)
	return &splat.Params{
		Mean:     [][3]float32{{0, 0, depth}},
		LogScale: [][3]float32{{float32(math.Log(0.2)), float32(math.Log(0.2)), float32(math.Log(0.2))}},
		Quat:     [][4]float32{{1, 0, 0, 0}},
		RawOpac:  []float32{8}, // sigmoid(8) ~ 0.9997
		SHCoeffs: [][]float32{{dc, dc, dc}},
		Degree:   0,
	}
}

func TestRenderEmptyScene(t *testing.T) {
	params := &splat.Params{Degree: 0}
	cam := identityCamera(32, 32)
	r := New(2)
	img, _, err := r.Render(context.Background(), params, cam, splat.Options{RenderMode: splat.RenderModeRGB})
	if err != nil {
		t.Fatal(err)
	}
	red, green, blue, _ := img.At(16, 16)
	if red != 0 || green != 0 || blue != 0 {
		t.Fatalf("empty scene should render pure background, got (%v,%v,%v)", red, green, blue)
	}
}

func TestRenderSingleOpaqueSplatCenter(t *testing.T) {
	params := whiteParams(5)
	cam := identityCamera(64, 64)
	r := New(2)
	img, _, err := r.Render(context.Background(), params, cam, splat.Options{RenderMode: splat.RenderModeRGB})
	if err != nil {
		t.Fatal(err)
	}
	red, green, blue, _ := img.At(32, 32)
	if red < 0.9 || green < 0.9 || blue < 0.9 {
		t.Fatalf("center pixel should be near-white, got (%v,%v,%v)", red, green, blue)
	}
	red, green, blue, _ = img.At(1, 1)
	if red != 0 || green != 0 || blue != 0 {
		t.Fatalf("corner pixel should be untouched background, got (%v,%v,%v)", red, green, blue)
	}
}

func TestRenderSplatBehindCamera(t *testing.T) {
	params := whiteParams(-5)
	cam := identityCamera(32, 32)
	r := New(2)
	img, _, err := r.Render(context.Background(), params, cam, splat.Options{RenderMode: splat.RenderModeRGB})
	if err != nil {
		t.Fatal(err)
	}
	red, green, blue, _ := img.At(16, 16)
	if red != 0 || green != 0 || blue != 0 {
		t.Fatalf("splat behind camera must be culled, got (%v,%v,%v)", red, green, blue)
	}
}

func TestRenderZeroQuatSplatCulled(t *testing.T) {
	params := whiteParams(5)
	params.Quat[0] = [4]float32{0, 0, 0, 0}
	cam := identityCamera(32, 32)
	r := New(2)
	img, _, err := r.Render(context.Background(), params, cam, splat.Options{RenderMode: splat.RenderModeRGB})
	if err != nil {
		t.Fatal(err)
	}
	red, green, blue, _ := img.At(16, 16)
	if red != 0 || green != 0 || blue != 0 {
		t.Fatalf("degenerate zero-norm quaternion must be culled, got (%v,%v,%v)", red, green, blue)
	}
}

func TestRenderTwoSplatsDepthOrder(t *testing.T) {
	const c0 = 0.28209479177387814
	redDC := float32((1 - 0.5) / c0)
	params := &splat.Params{
		Mean:     [][3]float32{{0, 0, 10}, {0, 0, 5}},
		LogScale: [][3]float32{{float32(math.Log(0.3)), float32(math.Log(0.3)), float32(math.Log(0.3))}, {float32(math.Log(0.3)), float32(math.Log(0.3)), float32(math.Log(0.3))}},
		Quat:     [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}},
		RawOpac:  []float32{8, 8},
		SHCoeffs: [][]float32{{redDC, 0, 0}, {0, 0, redDC}},
		Degree:   0,
	}
	cam := identityCamera(64, 64)
	r := New(2)
	img, _, err := r.Render(context.Background(), params, cam, splat.Options{RenderMode: splat.RenderModeRGB})
	if err != nil {
		t.Fatal(err)
	}
	red, _, blue, _ := img.At(32, 32)
	if blue < 0.9 {
		t.Fatalf("nearer blue splat should dominate the far red one, got red=%v blue=%v", red, blue)
	}
}

func TestRenderBackgroundPremultiplication(t *testing.T) {
	params := whiteParams(5)
	params.RawOpac[0] = -8 // sigmoid(-8) ~ 3e-4, nearly transparent
	cam := identityCamera(32, 32)
	cam.Background = [3]float32{0.2, 0.4, 0.6}
	r := New(2)
	img, _, err := r.Render(context.Background(), params, cam, splat.Options{RenderMode: splat.RenderModeRGB})
	if err != nil {
		t.Fatal(err)
	}
	red, green, blue, _ := img.At(16, 16)
	if red == 0 && green == 0 && blue == 0 {
		t.Fatalf("near-transparent splat over background should not render pure black, got (%v,%v,%v)", red, green, blue)
	}
	// Corner untouched by the splat must equal the background exactly.
	red, green, blue, _ = img.At(1, 1)
	if red != cam.Background[0] || green != cam.Background[1] || blue != cam.Background[2] {
		t.Fatalf("untouched pixel should equal background exactly, got (%v,%v,%v)", red, green, blue)
	}
}

func TestRenderModeRGBDPopulatesDepth(t *testing.T) {
	params := whiteParams(7)
	cam := identityCamera(32, 32)
	r := New(2)
	img, _, err := r.Render(context.Background(), params, cam, splat.Options{RenderMode: splat.RenderModeRGBD})
	if err != nil {
		t.Fatal(err)
	}
	if img.Depth == nil {
		t.Fatal("RenderModeRGBD must populate Depth")
	}
	idx := 16*32 + 16
	if img.Depth[idx] < 6 || img.Depth[idx] > 8 {
		t.Fatalf("center depth should be near the splat's depth of 7, got %v", img.Depth[idx])
	}
}

func TestRenderModePackedU32(t *testing.T) {
	params := whiteParams(5)
	cam := identityCamera(64, 64)
	r := New(2)
	img, _, err := r.Render(context.Background(), params, cam, splat.Options{RenderMode: splat.RenderModePackedU32})
	if err != nil {
		t.Fatal(err)
	}
	idx := 32*64 + 32
	p := img.Packed[idx]
	red := p & 0xff
	alpha := (p >> 24) & 0xff
	if red < 200 {
		t.Fatalf("center pixel's packed red channel should be near-white, got %d", red)
	}
	if alpha < 200 {
		t.Fatalf("center pixel's packed alpha channel should be near-opaque, got %d", alpha)
	}
}

func TestBackwardProducesNonZeroGradients(t *testing.T) {
	params := whiteParams(5)
	cam := identityCamera(32, 32)
	r := New(2)
	img, aux, err := r.Render(context.Background(), params, cam, splat.Options{RenderMode: splat.RenderModeRGB, KeepAuxForBackward: true})
	if err != nil {
		t.Fatal(err)
	}
	dLdImage := make([]float32, cam.ImgWidth*cam.ImgHeight*3)
	for i := range dLdImage {
		dLdImage[i] = 1
	}
	grads, err := r.Backward(context.Background(), aux, dLdImage)
	if err != nil {
		t.Fatal(err)
	}
	if grads.RawOpac[0] == 0 {
		t.Fatal("expected non-zero opacity gradient for a visible, contributing splat")
	}
	_ = img
}

func TestDebugValidationPasses(t *testing.T) {
	params := &splat.Params{
		Mean:     [][3]float32{{0, 0, 5}, {2, -1, 8}, {-2, 1, 12}},
		LogScale: [][3]float32{{-1.6, -1.6, -1.6}, {-1.2, -1.2, -1.2}, {-1.8, -1.8, -1.8}},
		Quat:     [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}},
		RawOpac:  []float32{4, 4, 4},
		SHCoeffs: [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		Degree:   0,
	}
	cam := identityCamera(48, 48)
	r := New(2)
	_, _, err := r.Render(context.Background(), params, cam, splat.Options{RenderMode: splat.RenderModeRGB, DebugValidation: true})
	if err != nil {
		t.Fatalf("debug-validation should pass on a well-formed scene: %v", err)
	}
}
