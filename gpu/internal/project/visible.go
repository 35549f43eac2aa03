// SPDX-License-Identifier: Unlicense OR MIT

package project

import (
	"context"

	"github.com/brush-gfx/brush/gpu/internal/device"
	"github.com/brush-gfx/brush/gpu/internal/gmath"
	"github.com/brush-gfx/brush/gpu/internal/isect"
	"github.com/brush-gfx/brush/gpu/internal/sh"
	"github.com/brush-gfx/brush/splat"
)

// Projected is the packed per-survivor record spec.md §3 calls
// projected[num_visible]: (mean2d, conic, rgb, alpha), plus the blurred
// 2D covariance retained so the tile-extent computation of stage 5 can
// reproduce stage 3's tile set exactly (spec.md §4.5).
type Projected struct {
	Mean2D      gmath.Vec2
	Conic       gmath.Mat2Sym
	CovBlurred gmath.Mat2Sym
	RGB         [3]float32
	Alpha       float32
}

// Threshold returns log(255*alpha), spec.md's visibility power threshold.
func (p Projected) Threshold() float32 {
	if p.Alpha <= 0 {
		return 0
	}
	return logf(255 * p.Alpha)
}

// Extent returns the pixel-space half-extent of the splat's level set at
// its power threshold, computed the same way stage 1 derives it so the
// stage-3 and stage-5 tile walks agree.
func (p Projected) Extent() gmath.Vec2 {
	return extentFromPowerThreshold(p.CovBlurred, p.Threshold())
}

// VisibleResult is the output of project-visible: the packed projections
// and the per-splat (+1-offset) intersection counts of spec.md §3/§4.3.
type VisibleResult struct {
	Projected       []Projected
	IntersectCounts []uint32 // length NumVisible+1, index c+1 holds splat c's count
	TilesX, TilesY  int
}

// Visible runs stage 3 (spec.md §4.3): per-survivor re-projection, SH
// color evaluation and tile-intersection counting.
func Visible(ctx context.Context, dev *device.Device, params *splat.Params, cam *splat.Camera, cull *CullResult) (*VisibleResult, error) {
	nv := cull.NumVisible
	tx, ty := cam.TileBounds()
	res := &VisibleResult{
		Projected:       make([]Projected, nv),
		IntersectCounts: make([]uint32, nv+1),
		TilesX:          tx,
		TilesY:          ty,
	}
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
			proj := projectOne(params, cam, g, camPos)
			res.Projected[c] = proj

			extent := proj.Extent()
			threshold := proj.Threshold()
			var hits uint32
			isect.ForEachTile(proj.Mean2D, extent, proj.Conic, threshold, tx, ty, func(int) {
				hits++
			})
			res.IntersectCounts[c+1] = hits
		}
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func projectOne(params *splat.Params, cam *splat.Camera, g int, camPos gmath.Vec3) Projected {
	mean := gmath.Vec3(params.Mean[g])
	q := params.Quat[g]
	quat := gmath.Quat{W: q[0], X: q[1], Y: q[2], Z: q[3]}.Normalize()
	meanC := ToViewSpace(cam.Viewmat, mean)
	sigma3 := Sigma3(quat, gmath.Vec3(params.LogScale[g]))
	_, covBlur, comp := Cov2D(cam.Viewmat, meanC, gmath.Vec2{cam.Focal[0], cam.Focal[1]}, cam.ImgWidth, cam.ImgHeight, sigma3)
	conic, ok := covBlur.Inverse()
	if !ok {
		conic = gmath.Mat2Sym{}
	}
	alpha := sigmoidf(params.RawOpac[g]) * comp

	dir := gmath.Normalize3(gmath.Sub3(mean, camPos))
	rgb := sh.Eval(params.Degree, dir, params.SHCoeffs[g])

	return Projected{
		Mean2D:     project2D(meanC, cam.Focal, cam.PixelCenter),
		Conic:      conic,
		CovBlurred: covBlur,
		RGB:        rgb,
		Alpha:      alpha,
	}
}
