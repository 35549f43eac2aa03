// SPDX-License-Identifier: Unlicense OR MIT

// Package project implements spec.md §4.1 (project-and-cull), §4.3
// (project-visible) and §4.10 (project-backward): the splat projection
// math shared by the forward culling pass and the per-survivor
// re-projection pass, plus its analytic backward.
package project

import (
	"github.com/brush-gfx/brush/gpu/internal/gmath"
)

// ViewRot extracts the 3x3 rotation (upper-left) block of a 4x4 view
// matrix.
func ViewRot(viewmat [4][4]float32) gmath.Mat3 {
	return gmath.Mat3{
		{viewmat[0][0], viewmat[0][1], viewmat[0][2]},
		{viewmat[1][0], viewmat[1][1], viewmat[1][2]},
		{viewmat[2][0], viewmat[2][1], viewmat[2][2]},
	}
}

// ViewTranslate extracts the translation column of a 4x4 view matrix.
func ViewTranslate(viewmat [4][4]float32) gmath.Vec3 {
	return gmath.Vec3{viewmat[0][3], viewmat[1][3], viewmat[2][3]}
}

// ToViewSpace computes mean_c = R*mean + t (spec.md §4.1).
func ToViewSpace(viewmat [4][4]float32, mean gmath.Vec3) gmath.Vec3 {
	r := ViewRot(viewmat)
	return gmath.Add3(r.MulV(mean), ViewTranslate(viewmat))
}

// Sigma3 builds the world-space 3D covariance R*diag(scale)^2*R^T from a
// normalized rotation quaternion and log-scale (spec.md §4.1: "Σ₃ =
// (quat→R) · diag(scale)² · Rᵀ").
func Sigma3(quat gmath.Quat, logScale gmath.Vec3) gmath.Mat3 {
	r := quat.RotMat()
	scale := gmath.Vec3{expf(logScale[0]), expf(logScale[1]), expf(logScale[2])}
	d := gmath.Diag3(gmath.Vec3{scale[0] * scale[0], scale[1] * scale[1], scale[2] * scale[2]})
	return r.Mul(d).Mul(r.Transpose())
}

// frustumClip clips a normalized image-plane coordinate (uv, in
// [-1,1]-ish NDC-like units prior to the focal-length scale) to a 1.15x
// frustum on the positive side and 0.15x past the negative side, spec.md
// §4.1's edge-gradient-exploding guard.
func frustumClip(u float32, limit float32) float32 {
	const posScale = 1.15
	const negScale = -1.15
	hi := limit * posScale
	lo := limit * negScale
	if u > hi {
		return hi
	}
	if u < lo {
		return lo
	}
	return u
}

// Jacobian computes the Jacobian of the perspective projection at view-space
// point meanC, with the uv-clipping of spec.md §4.1 applied to the point
// used to evaluate the Jacobian (not to the unclipped projection itself).
func Jacobian(meanC gmath.Vec3, focal gmath.Vec2, imgW, imgH int) gmath.Mat3 {
	z := meanC[2]
	if z < 1e-6 {
		z = 1e-6
	}
	invZ := 1 / z
	u := meanC[0] * invZ
	v := meanC[1] * invZ
	limX := float32(imgW) / 2 / focal[0]
	limY := float32(imgH) / 2 / focal[1]
	u = frustumClip(u, limX)
	v = frustumClip(v, limY)
	tx := u * z
	ty := v * z
	return gmath.Mat3{
		{focal[0] * invZ, 0, -focal[0] * tx * invZ * invZ},
		{0, focal[1] * invZ, -focal[1] * ty * invZ * invZ},
		{0, 0, 0},
	}
}

// BlurVariance is the small diagonal blur spec.md §4.1 adds to cov2d "to
// avoid singularities".
const BlurVariance = 0.3

// Cov2D computes the 2D screen-space covariance (as a symmetric 2x2, the
// top-left block of J*R*Sigma3*R^T*J^T) plus the blurred variant and the
// opacity compensation factor of spec.md §4.1.
func Cov2D(viewmat [4][4]float32, meanC gmath.Vec3, focal gmath.Vec2, imgW, imgH int, sigma3 gmath.Mat3) (cov, covBlurred gmath.Mat2Sym, compensation float32) {
	viewRot := ViewRot(viewmat)
	j := Jacobian(meanC, focal, imgW, imgH)
	t := j.Mul(viewRot)
	full := t.Mul(sigma3).Mul(t.Transpose())
	cov = gmath.Mat2Sym{XX: full[0][0], XY: full[0][1], YY: full[1][1]}
	covBlurred = cov.AddDiag(BlurVariance)

	detOrig := cov.Det()
	detBlur := covBlurred.Det()
	if detBlur <= 0 || detOrig <= 0 {
		compensation = 0
		return
	}
	ratio := detOrig / detBlur
	if ratio < 0 {
		ratio = 0
	}
	compensation = sqrtf(ratio)
	return
}

func expf(v float32) float32 {
	return float32(mathExp(float64(v)))
}

// CameraPosition returns the world-space camera position implied by
// viewmat (v = R*w + t with v=0 at the camera): w_cam = -R^T * t.
func CameraPosition(viewmat [4][4]float32) gmath.Vec3 {
	r := ViewRot(viewmat)
	t := ViewTranslate(viewmat)
	return gmath.Scale3(r.Transpose().MulV(t), -1)
}
