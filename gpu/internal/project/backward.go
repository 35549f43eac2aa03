// SPDX-License-Identifier: Unlicense OR MIT

package project

import (
	"context"

	"github.com/brush-gfx/brush/gpu/internal/device"
	"github.com/brush-gfx/brush/gpu/internal/gmath"
	"github.com/brush-gfx/brush/gpu/internal/sh"
	"github.com/brush-gfx/brush/splat"
)

// ProjectedGrad accumulates stage 9's output gradients with respect to a
// single Projected record: d(loss)/d(mean2d, conic, rgb, alpha). Defined
// here (rather than in package raster, which produces it) because
// project-backward is what consumes it and raster already depends on
// project for the Projected type it reads; putting both shared records in
// one package avoids a project<->raster import cycle. Every accumulation
// into one of these goes through device.AtomicAddFloat32 (spec.md §4.9's
// "atomically scatter-add into the per-splat gradient buffers"), since
// multiple pixels across multiple tiles can target the same splat.
type ProjectedGrad struct {
	DMean2D gmath.Vec2
	DConic  gmath.Mat2Sym
	DRGB    [3]float32
	DAlpha  float32
}

// Backward runs stage 10 (spec.md §4.10): given stage 9's gradients with
// respect to each survivor's (mean2d, conic, rgb, alpha), produces
// splat.Grads with respect to the original per-splat parameters by
// inverting the closed-form forward chain of visible.go/covariance.go
// (recomputing its intermediates rather than storing them, per spec.md
// §9) instead of probing it numerically.
func Backward(ctx context.Context, dev *device.Device, params *splat.Params, cam *splat.Camera, cull *CullResult, projected []Projected, rasterGrads []ProjectedGrad) (*splat.Grads, error) {
	grads := splat.NewGrads(params)
	nv := cull.NumVisible
	camPos := CameraPosition(cam.Viewmat)

	numWG := (nv + WorkgroupSize - 1) / WorkgroupSize
	err := dev.Dispatch(ctx, numWG, func(_ *device.Barrier, wg int) {
		start := wg * WorkgroupSize
		end := start + WorkgroupSize
		if end > nv {
			end = nv
		}
		for c := start; c < end; c++ {
			g := int(cull.GlobalFromCompact[c])
			backwardOne(grads, params, cam, camPos, g, rasterGrads[c])
		}
	})
	if err != nil {
		return nil, err
	}
	return grads, nil
}

// backwardOne inverts project-visible's math for a single splat:
//
//	quatN   = normalize(quatRaw)
//	meanC   = ViewRot*mean + ViewTranslate                    (linear)
//	Rq      = quatN.RotMat(); Sigma3 = Rq*diag(scale^2)*Rq^T
//	J       = Jacobian(meanC, ...); T = J*ViewRot
//	full    = T*Sigma3*T^T; cov = full[0:2,0:2]; covBlurred = cov+0.3*I
//	conic   = covBlurred^-1; compensation = sqrt(det(cov)/det(covBlurred))
//	mean2d  = project2D(meanC, ...); alpha = sigmoid(rawOpac)*compensation
//
// back to front, each step its own closed-form local Jacobian, accumulating
// into grads. The SH-color half (exact coefficient gradient, finite
// difference direction gradient) is sh.Backward's own documented
// simplification and is untouched here.
func backwardOne(grads *splat.Grads, params *splat.Params, cam *splat.Camera, camPos gmath.Vec3, g int, rg ProjectedGrad) {
	mean := gmath.Vec3(params.Mean[g])
	logScale := gmath.Vec3(params.LogScale[g])
	quatRaw := params.Quat[g]
	rawOpac := params.RawOpac[g]

	dir := gmath.Normalize3(gmath.Sub3(mean, camPos))
	dLdCoeffs, dLdDir := sh.Backward(params.Degree, dir, params.SHCoeffs[g], rg.DRGB)
	copy(grads.SHCoeffs[g], dLdCoeffs)
	dMeanFromDir := dNormalizeBackward(gmath.Sub3(mean, camPos), dLdDir)

	quatN := gmath.Quat{W: quatRaw[0], X: quatRaw[1], Y: quatRaw[2], Z: quatRaw[3]}.Normalize()
	meanC := ToViewSpace(cam.Viewmat, mean)
	viewRot := ViewRot(cam.Viewmat)
	focal := gmath.Vec2{cam.Focal[0], cam.Focal[1]}

	Rq := quatN.RotMat()
	scale := gmath.Vec3{expf(logScale[0]), expf(logScale[1]), expf(logScale[2])}
	D := gmath.Diag3(gmath.Vec3{scale[0] * scale[0], scale[1] * scale[1], scale[2] * scale[2]})
	M := Rq.Mul(D)
	sigma3 := M.Mul(Rq.Transpose())

	j := Jacobian(meanC, focal, cam.ImgWidth, cam.ImgHeight)
	t := j.Mul(viewRot)
	u := t.Mul(sigma3)
	full := u.Mul(t.Transpose())
	cov := gmath.Mat2Sym{XX: full[0][0], XY: full[0][1], YY: full[1][1]}
	covBlurred := cov.AddDiag(BlurVariance)
	conic, conicOK := covBlurred.Inverse()

	detCov := cov.Det()
	detCovBlurred := covBlurred.Det()
	s := sigmoidf(rawOpac)
	var comp float32
	if detCov > 0 && detCovBlurred > 0 {
		if ratio := detCov / detCovBlurred; ratio > 0 {
			comp = sqrtf(ratio)
		}
	}

	grads.RawOpac[g] += rg.DAlpha * comp * s * (1 - s)
	dLdComp := rg.DAlpha * s

	// d(mean2d)/d(meanC): project2D's unclipped perspective divide.
	invZ := 1 / meanC[2]
	var dMeanC gmath.Vec3
	dMeanC[0] = rg.DMean2D[0] * focal[0] * invZ
	dMeanC[1] = rg.DMean2D[1] * focal[1] * invZ
	dMeanC[2] = -invZ * invZ * (rg.DMean2D[0]*focal[0]*meanC[0] + rg.DMean2D[1]*focal[1]*meanC[1])

	// conic = covBlurred^-1: d(X^-1)/dX contracted with dL/dconic is
	// -conic * dL/dconic * conic (for Y=X^-1, dL/dX = -Y^T*dL/dY*Y^T).
	var dCovBlurred gmath.Mat2Sym
	if conicOK {
		dCovBlurred = dCovBlurred.AddSym(conicBackward(conic, rg.DConic))
	}
	// compensation = sqrt(det(cov)/det(covBlurred)) depends on both dets.
	var dCov gmath.Mat2Sym
	if comp > 0 {
		dDetCov := dLdComp * comp / (2 * detCov)
		dDetCovBlurred := -dLdComp * comp / (2 * detCovBlurred)
		dCov = dCov.AddSym(gmath.Mat2Sym{XX: dDetCov * cov.YY, XY: -2 * dDetCov * cov.XY, YY: dDetCov * cov.XX})
		dCovBlurred = dCovBlurred.AddSym(gmath.Mat2Sym{XX: dDetCovBlurred * covBlurred.YY, XY: -2 * dDetCovBlurred * covBlurred.XY, YY: dDetCovBlurred * covBlurred.XX})
	}
	// covBlurred = cov + BlurVariance*I: identity pass-through to cov.
	dCov = dCov.AddSym(dCovBlurred)

	// full = T*Sigma3*T^T, but only full[0][0], full[0][1] and full[1][1]
	// are ever read into cov, so dL/dfull is zero elsewhere.
	var dFull gmath.Mat3
	dFull[0][0] = dCov.XX
	dFull[0][1] = dCov.XY
	dFull[1][1] = dCov.YY

	// u = t*sigma3; full = u*t^T.
	du := dFull.Mul(t)
	dtFromFull := dFull.Transpose().Mul(u)
	dtFromU := du.Mul(sigma3)
	dt := dtFromU.Add(dtFromFull)
	dSigma3 := t.Transpose().Mul(du)

	// t = j*viewRot (viewRot is a fixed camera parameter, no gradient).
	dJ := dt.Mul(viewRot.Transpose())
	dMeanC = gmath.Add3(dMeanC, dJacobianToMeanC(meanC, focal, cam.ImgWidth, cam.ImgHeight, dJ))
	dMeanFromProj := viewRot.Transpose().MulV(dMeanC)

	// sigma3 = M*Rq^T, M = Rq*D.
	dM := dSigma3.Mul(Rq)
	dRqFromSigma3 := dSigma3.Transpose().Mul(M)
	dRqFromM := dM.Mul(D)
	dRq := dRqFromM.Add(dRqFromSigma3)
	dD := Rq.Transpose().Mul(dM)

	dQuatN := dRotMatBackward(quatN, dRq)
	dQuatRaw := dQuatNormalizeBackward(quatRaw, dQuatN)

	totalMean := gmath.Add3(dMeanFromProj, dMeanFromDir)
	grads.Mean[g][0] += totalMean[0]
	grads.Mean[g][1] += totalMean[1]
	grads.Mean[g][2] += totalMean[2]
	grads.LogScale[g][0] += dD[0][0] * 2 * scale[0] * scale[0]
	grads.LogScale[g][1] += dD[1][1] * 2 * scale[1] * scale[1]
	grads.LogScale[g][2] += dD[2][2] * 2 * scale[2] * scale[2]
	grads.Quat[g][0] += dQuatRaw[0]
	grads.Quat[g][1] += dQuatRaw[1]
	grads.Quat[g][2] += dQuatRaw[2]
	grads.Quat[g][3] += dQuatRaw[3]
}

// conicBackward contracts dL/dconic against -conic*dL/dconic*conic,
// expanded in closed form for the symmetric (XX,XY,YY) representation.
func conicBackward(conic, dConic gmath.Mat2Sym) gmath.Mat2Sym {
	a, b, d := conic.XX, conic.XY, conic.YY
	p, q, r := dConic.XX, dConic.XY, dConic.YY
	return gmath.Mat2Sym{
		XX: -(a*a*p + 2*a*b*q + b*b*r),
		XY: -(a*b*p + (b*b+a*d)*q + b*d*r),
		YY: -(b*b*p + 2*b*d*q + d*d*r),
	}
}

// dJacobianToMeanC backs out the view-space-point dependence of
// Jacobian(meanC, ...): of its four nonzero entries, J[0][0]=fx/z and
// J[1][1]=fy/z depend only on z, while J[0][2]=-fx*u/z and
// J[1][2]=-fy*v/z also depend on x (resp. y) through the frustum-clipped
// u=clip(x/z) (resp. v=clip(y/z)). frustumClip passes its input through
// unchanged when not clamped, so comparing the clipped value to the raw
// one recovers its 0/1 gradient without re-deriving frustumClip itself.
func dJacobianToMeanC(meanC gmath.Vec3, focal gmath.Vec2, imgW, imgH int, dJ gmath.Mat3) gmath.Vec3 {
	z := meanC[2]
	if z < 1e-6 {
		z = 1e-6
	}
	invZ := 1 / z
	uRaw := meanC[0] * invZ
	vRaw := meanC[1] * invZ
	limX := float32(imgW) / 2 / focal[0]
	limY := float32(imgH) / 2 / focal[1]
	u := frustumClip(uRaw, limX)
	v := frustumClip(vRaw, limY)
	var clipGradX, clipGradY float32
	if u == uRaw {
		clipGradX = 1
	}
	if v == vRaw {
		clipGradY = 1
	}

	var d gmath.Vec3
	d[0] = dJ[0][2] * (-focal[0] * clipGradX * invZ * invZ)
	d[1] = dJ[1][2] * (-focal[1] * clipGradY * invZ * invZ)
	d[2] = dJ[0][0]*(-focal[0]*invZ*invZ) + dJ[1][1]*(-focal[1]*invZ*invZ) +
		dJ[0][2]*focal[0]*invZ*invZ*(clipGradX*uRaw+u) +
		dJ[1][2]*focal[1]*invZ*invZ*(clipGradY*vRaw+v)
	return d
}

// dRotMatBackward backs out d(loss)/d(w,x,y,z) from d(loss)/d(Rq), Rq
// being quat.RotMat()'s closed form; each entry below is that matrix
// entry's partial derivative with respect to one quaternion component.
func dRotMatBackward(q gmath.Quat, dRq gmath.Mat3) [4]float32 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	dw := dRq[0][1]*(-2*z) + dRq[0][2]*(2*y) + dRq[1][0]*(2*z) + dRq[1][2]*(-2*x) + dRq[2][0]*(-2*y) + dRq[2][1]*(2*x)
	dx := dRq[0][1]*(2*y) + dRq[0][2]*(2*z) + dRq[1][0]*(2*y) + dRq[1][1]*(-4*x) + dRq[1][2]*(-2*w) + dRq[2][0]*(2*z) + dRq[2][1]*(2*w) + dRq[2][2]*(-4*x)
	dy := dRq[0][0]*(-4*y) + dRq[0][1]*(2*x) + dRq[0][2]*(2*w) + dRq[1][0]*(2*x) + dRq[1][2]*(2*z) + dRq[2][0]*(-2*w) + dRq[2][1]*(2*z) + dRq[2][2]*(-4*y)
	dz := dRq[0][0]*(-4*z) + dRq[0][1]*(-2*w) + dRq[0][2]*(2*x) + dRq[1][0]*(2*w) + dRq[1][1]*(-4*z) + dRq[1][2]*(2*y) + dRq[2][0]*(2*x) + dRq[2][1]*(2*y)
	return [4]float32{dw, dx, dy, dz}
}

// dNormalizeBackward backprops through dir = v/|v|: d(dir)/dv =
// (I - dir*dir^T) / |v|.
func dNormalizeBackward(v gmath.Vec3, dLdDir gmath.Vec3) gmath.Vec3 {
	l := gmath.Len3(v)
	if l == 0 {
		return gmath.Vec3{}
	}
	dir := gmath.Scale3(v, 1/l)
	dot := gmath.Dot3(dir, dLdDir)
	return gmath.Scale3(gmath.Sub3(dLdDir, gmath.Scale3(dir, dot)), 1/l)
}

// dQuatNormalizeBackward is dNormalizeBackward's 4-component analogue for
// quatN = quatRaw/|quatRaw|.
func dQuatNormalizeBackward(raw [4]float32, dN [4]float32) [4]float32 {
	n2 := raw[0]*raw[0] + raw[1]*raw[1] + raw[2]*raw[2] + raw[3]*raw[3]
	if n2 == 0 {
		return [4]float32{}
	}
	l := sqrtf(n2)
	var dir [4]float32
	for i := range dir {
		dir[i] = raw[i] / l
	}
	var dot float32
	for i := range dir {
		dot += dir[i] * dN[i]
	}
	var out [4]float32
	for i := range out {
		out[i] = (dN[i] - dir[i]*dot) / l
	}
	return out
}
