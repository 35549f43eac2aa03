// SPDX-License-Identifier: Unlicense OR MIT

package project

import (
	"context"
	"sync/atomic"

	"github.com/brush-gfx/brush/gpu/internal/device"
	"github.com/brush-gfx/brush/gpu/internal/gmath"
	"github.com/brush-gfx/brush/splat"
)

// WorkgroupSize is the fixed workgroup size stage 1 and the per-splat
// stages use (spec.md §4.2's WG=256, reused here for one-thread-per-splat
// kernels).
const WorkgroupSize = 256

// CullResult is the output of project-and-cull (spec.md §3's transient
// buffers global_from_compact_gid and depths, sized to NumVisible).
type CullResult struct {
	GlobalFromCompact []uint32
	Depths            []float32
	NumVisible        int
}

// Cull runs stage 1 (spec.md §4.1): one thread per splat, rejecting
// invisible or degenerate splats and recording (global id, depth) for
// survivors. The survivor slot is reserved with an atomic counter rather
// than a real GPU atomic buffer index, which is the same operation
// spec.md's atomically-written num_visible performs.
func Cull(ctx context.Context, dev *device.Device, params *splat.Params, cam *splat.Camera) (*CullResult, error) {
	n := params.N()
	globalFromCompact := make([]uint32, n)
	depths := make([]float32, n)
	var numVisible int32

	numWG := (n + WorkgroupSize - 1) / WorkgroupSize
	err := dev.Dispatch(ctx, numWG, func(_ *device.Barrier, wg int) {
		start := wg * WorkgroupSize
		end := start + WorkgroupSize
		if end > n {
			end = n
		}
		for g := start; g < end; g++ {
			depth, visible := evalCull(params, cam, g)
			if !visible {
				continue
			}
			slot := atomic.AddInt32(&numVisible, 1) - 1
			globalFromCompact[slot] = uint32(g)
			depths[slot] = depth
		}
	})
	if err != nil {
		return nil, err
	}
	nv := int(numVisible)
	return &CullResult{
		GlobalFromCompact: globalFromCompact[:nv],
		Depths:             depths[:nv],
		NumVisible:         nv,
	}, nil
}

// evalCull applies spec.md §4.1's rejection predicates and bounding-box
// test for splat index g, returning its view-space depth and whether it
// survives. The predicates are written in positive form ("!(z < 0.01)")
// so that NaN values fail to survive, matching the spec's note that this
// is intentional.
func evalCull(params *splat.Params, cam *splat.Camera, g int) (depth float32, visible bool) {
	mean := gmath.Vec3(params.Mean[g])
	q := params.Quat[g]
	quat := gmath.Quat{W: q[0], X: q[1], Y: q[2], Z: q[3]}
	if !(quat.NormSq() >= 1e-6) {
		return 0, false
	}
	meanC := ToViewSpace(cam.Viewmat, mean)
	z := meanC[2]
	if !(z >= 0.01) || !(z <= 1e10) {
		return 0, false
	}

	alpha := sigmoidf(params.RawOpac[g])
	if !(alpha >= 1.0/255.0) {
		return 0, false
	}

	quatN := quat.Normalize()
	sigma3 := Sigma3(quatN, gmath.Vec3(params.LogScale[g]))
	cov, covBlur, comp := Cov2D(cam.Viewmat, meanC, gmath.Vec2{cam.Focal[0], cam.Focal[1]}, cam.ImgWidth, cam.ImgHeight, sigma3)
	_ = cov
	alphaComp := alpha * comp
	if !(alphaComp >= 1.0/255.0) {
		return 0, false
	}

	threshold := logf(255 * alphaComp)
	if threshold <= 0 {
		return 0, false
	}
	extent := extentFromPowerThreshold(covBlur, threshold)

	mean2D := project2D(meanC, cam.Focal, cam.PixelCenter)
	bboxMinX := mean2D[0] - extent[0]
	bboxMaxX := mean2D[0] + extent[0]
	bboxMinY := mean2D[1] - extent[1]
	bboxMaxY := mean2D[1] + extent[1]
	if bboxMaxX < 0 || bboxMinX > float32(cam.ImgWidth) || bboxMaxY < 0 || bboxMinY > float32(cam.ImgHeight) {
		return 0, false
	}
	return z, true
}

// project2D projects a view-space point to pixel coordinates.
func project2D(meanC gmath.Vec3, focal, pixelCenter [2]float32) gmath.Vec2 {
	invZ := 1 / meanC[2]
	return gmath.Vec2{
		meanC[0]*invZ*focal[0] + pixelCenter[0],
		meanC[1]*invZ*focal[1] + pixelCenter[1],
	}
}

// extentFromPowerThreshold derives the pixel-space half-extent of the
// Gaussian's level set at the given power threshold (spec.md §4.1/§4.3):
// the axis-aligned bound where the quadratic form in cov equals threshold.
func extentFromPowerThreshold(cov gmath.Mat2Sym, threshold float32) gmath.Vec2 {
	// power(delta) = 0.5*delta^T*C*delta with C = cov^-1 (isect.Power), so
	// the level set power=threshold is the ellipse delta^T*C*delta =
	// 2*threshold, whose axis-aligned bounding half-width is
	// sqrt(2*threshold*cov.XX) (and sqrt(2*threshold*cov.YY) in y). This
	// is at least the ellipse's x-axis intercept sqrt(2*threshold/Cxx),
	// with equality only when cov.XY == 0.
	halfX := sqrtf(maxf(2*threshold*cov.XX, 0))
	halfY := sqrtf(maxf(2*threshold*cov.YY, 0))
	return gmath.Vec2{halfX, halfY}
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
