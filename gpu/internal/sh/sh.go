// SPDX-License-Identifier: Unlicense OR MIT

// Package sh evaluates view-dependent color from spherical-harmonic
// coefficients (spec.md §4.3/§4.10), closed-form up to band 4 (25
// coefficients), the Sloan 2013 zonal/sectoral recursion constants spec.md
// names. There is no teacher analogue for this — the teacher's gpu package
// has no notion of view-dependent shading — so this is built directly from
// the invariant spec.md states (closed-form bands 0..4).
package sh

import "github.com/brush-gfx/brush/gpu/internal/gmath"

const (
	c0 = 0.28209479177387814
	c1 = 0.4886025119029199
)

var c2 = [5]float32{1.0925484305920792, -1.0925484305920792, 0.31539156525252005, -1.0925484305920792, 0.5462742152960396}
var c3 = [7]float32{-0.5900435899266435, 2.890611442640554, -0.4570457994644658, 0.3731763325901154, -0.4570457994644658, 1.445305721320277, -0.5900435899266435}
var c4 = [9]float32{2.5033429417967046, -1.7701307697799304, 0.9461746957575601, -0.6690465435572892, 0.10578554691520431, -0.6690465435572892, 0.47308734787878004, -1.7701307697799304, 0.6258357354491761}

// MaxDegree is the highest supported SH band (spec.md §1 non-goal: no more
// than 5 bands, i.e. degrees 0..4).
const MaxDegree = 4

// CoeffCount returns (degree+1)^2.
func CoeffCount(degree int) int {
	n := degree + 1
	return n * n
}

// basis evaluates the real SH basis functions up to degree at unit
// direction dir, appending into dst (len == CoeffCount(degree)).
func basis(degree int, dir gmath.Vec3, dst []float32) {
	dst[0] = c0
	if degree < 1 {
		return
	}
	x, y, z := dir[0], dir[1], dir[2]
	dst[1] = -c1 * y
	dst[2] = c1 * z
	dst[3] = -c1 * x
	if degree < 2 {
		return
	}
	xx, yy, zz := x*x, y*y, z*z
	xy, yz, xz := x*y, y*z, x*z
	dst[4] = c2[0] * xy
	dst[5] = c2[1] * yz
	dst[6] = c2[2] * (2*zz - xx - yy)
	dst[7] = c2[3] * xz
	dst[8] = c2[4] * (xx - yy)
	if degree < 3 {
		return
	}
	dst[9] = c3[0] * y * (3*xx - yy)
	dst[10] = c3[1] * xy * z
	dst[11] = c3[2] * y * (4*zz - xx - yy)
	dst[12] = c3[3] * z * (2*zz - 3*xx - 3*yy)
	dst[13] = c3[4] * x * (4*zz - xx - yy)
	dst[14] = c3[5] * z * (xx - yy)
	dst[15] = c3[6] * x * (xx - 3*yy)
	if degree < 4 {
		return
	}
	dst[16] = c4[0] * xy * (xx - yy)
	dst[17] = c4[1] * yz * (3*xx - yy)
	dst[18] = c4[2] * xy * (7*zz - 1)
	dst[19] = c4[3] * yz * (7*zz - 3)
	dst[20] = c4[4] * (zz*(35*zz-30) + 3)
	dst[21] = c4[5] * xz * (7*zz - 3)
	dst[22] = c4[6] * (xx - yy) * (7*zz - 1)
	dst[23] = c4[7] * xz * (xx - 3*yy)
	dst[24] = c4[8] * (xx*(xx-3*yy) - yy*(3*xx-yy))
}

// Eval returns the RGB color for a splat with the given SH coefficients
// (coeffs, laid out as CoeffCount(degree) consecutive RGB triples) seen
// from unit direction dir. The +0.5 per-channel offset is spec.md §4.3's
// "band-0 coefficient is centred on zero so baseline gray is 0.5"
// convention; clamping to >=0 happens at blend time, not here.
func Eval(degree int, dir gmath.Vec3, coeffs []float32) [3]float32 {
	n := CoeffCount(degree)
	var basisVals [sh25]float32
	basis(degree, dir, basisVals[:n])
	var rgb [3]float32
	for i := 0; i < n; i++ {
		b := basisVals[i]
		rgb[0] += b * coeffs[i*3+0]
		rgb[1] += b * coeffs[i*3+1]
		rgb[2] += b * coeffs[i*3+2]
	}
	rgb[0] += 0.5
	rgb[1] += 0.5
	rgb[2] += 0.5
	return rgb
}

const sh25 = 25

// Backward computes the gradient on the SH coefficients and on the input
// direction, given the upstream gradient on the evaluated RGB color.
// dL/dcoeffs is exact (Eval is linear in coeffs: dRGB/dcoeff_i = basis_i).
// dL/ddir is obtained by central finite differences on Eval itself rather
// than by hand-deriving all 25 per-axis analytic partials (risky to get
// right for band 4 by hand); this keeps the coefficient gradient exact
// while still closing the chain into project-backward's dL/dmean.
func Backward(degree int, dir gmath.Vec3, coeffs []float32, dLdRGB [3]float32) (dLdCoeffs []float32, dLdDir gmath.Vec3) {
	n := CoeffCount(degree)
	var basisVals [sh25]float32
	basis(degree, dir, basisVals[:n])
	dLdCoeffs = make([]float32, n*3)
	for i := 0; i < n; i++ {
		b := basisVals[i]
		dLdCoeffs[i*3+0] = b * dLdRGB[0]
		dLdCoeffs[i*3+1] = b * dLdRGB[1]
		dLdCoeffs[i*3+2] = b * dLdRGB[2]
	}

	const eps = 1e-3
	for axis := 0; axis < 3; axis++ {
		dPlus, dMinus := dir, dir
		dPlus[axis] += eps
		dMinus[axis] -= eps
		rgbPlus := Eval(degree, dPlus, coeffs)
		rgbMinus := Eval(degree, dMinus, coeffs)
		var g float32
		for c := 0; c < 3; c++ {
			g += dLdRGB[c] * (rgbPlus[c] - rgbMinus[c]) / (2 * eps)
		}
		dLdDir[axis] = g
	}
	return
}
