// SPDX-License-Identifier: Unlicense OR MIT

package raster

import (
	"context"

	"github.com/brush-gfx/brush/gpu/internal/device"
	"github.com/brush-gfx/brush/gpu/internal/gmath"
	"github.com/brush-gfx/brush/gpu/internal/isect"
	"github.com/brush-gfx/brush/gpu/internal/project"
)

// Backward runs stage 9: replays each tile's compositing front-to-back
// (using the forward pass's recorded last contributor to know where to
// stop) and walks it back-to-front, scatter-adding each pixel's loss
// gradient into every splat that touched it.
func Backward(ctx context.Context, dev *device.Device, projected []project.Projected, sorted []isect.Record, tileOffsets []uint32, fwd *Forward, dLdImage []float32, tilesX, tilesY, width, height int) ([]project.ProjectedGrad, error) {
	grads := make([]project.ProjectedGrad, len(projected))

	numTiles := tilesX * tilesY
	err := dev.Dispatch(ctx, numTiles, func(_ *device.Barrier, tile int) {
		tx := tile % tilesX
		ty := tile / tilesX
		runStart := tileOffsets[tile]
		runEnd := tileOffsets[tile+1]
		records := sorted[runStart:runEnd]
		if len(records) == 0 {
			return
		}

		px0 := tx * TileSize
		py0 := ty * TileSize
		for ly := 0; ly < TileSize; ly++ {
			py := py0 + ly
			if py >= height {
				continue
			}
			for lx := 0; lx < TileSize; lx++ {
				px := px0 + lx
				if px >= width {
					continue
				}
				backwardPixel(grads, projected, records, px, py, width, fwd, dLdImage)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return grads, nil
}

type pixelStep struct {
	gid         uint32
	alpha       float32
	transBefore float32
}

func backwardPixel(grads []project.ProjectedGrad, projected []project.Projected, records []isect.Record, px, py, width int, fwd *Forward, dLdImage []float32) {
	idx := py*width + px
	lastContrib := fwd.LastContrib[idx]
	if lastContrib < 0 {
		return
	}
	dLdR := dLdImage[idx*3+0]
	dLdG := dLdImage[idx*3+1]
	dLdB := dLdImage[idx*3+2]
	pixel := gmath.Vec2{float32(px) + 0.5, float32(py) + 0.5}

	// Replay the forward composite up to lastContrib to recover each
	// contributing splat's alpha and the transmittance just before it,
	// the recomputation spec.md §4.9 prescribes in place of storing
	// per-pixel per-splat history.
	transmittance := float32(1)
	steps := make([]pixelStep, 0, lastContrib+1)
	for i := 0; i <= int(lastContrib); i++ {
		sp := projected[records[i].CompactGID]
		delta := gmath.Sub2(pixel, sp.Mean2D)
		power := isect.Power(sp.Conic, delta)
		alpha := float32(0)
		if power >= 0 {
			a := sp.Alpha * expNeg(power)
			if a > AlphaClamp {
				a = AlphaClamp
			}
			if a >= 1.0/255.0 {
				alpha = a
			}
		}
		steps = append(steps, pixelStep{gid: records[i].CompactGID, alpha: alpha, transBefore: transmittance})
		if alpha > 0 {
			transmittance *= 1 - alpha
		}
	}

	// suffixRGB is the premultiplied color contributed by every splat
	// after the current step (accumulated walking back-to-front), needed
	// for d(alpha_i)'s contribution through every later splat's
	// (1-alpha_i) transmittance factor.
	var suffixR, suffixG, suffixB float32
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if s.alpha == 0 {
			continue
		}
		sp := projected[s.gid]
		g := &grads[s.gid]

		weight := s.alpha * s.transBefore
		device.AtomicAddFloat32(&g.DRGB[0], weight*dLdR)
		device.AtomicAddFloat32(&g.DRGB[1], weight*dLdG)
		device.AtomicAddFloat32(&g.DRGB[2], weight*dLdB)

		// d(loss)/d(alpha_i): this splat's own color contribution, minus
		// the suppression it causes on every later (already-summed)
		// contribution via the (1-alpha_i) transmittance factor.
		dAlpha := s.transBefore*(sp.RGB[0]*dLdR+sp.RGB[1]*dLdG+sp.RGB[2]*dLdB) -
			(suffixR*dLdR+suffixG*dLdG+suffixB*dLdB)/(1-s.alpha)
		// ProjectedGrad.DAlpha is with respect to the splat's own opacity
		// sp.Alpha: d(alpha_i)/d(sp.Alpha) = exp(-power) = alpha_i/sp.Alpha.
		device.AtomicAddFloat32(&g.DAlpha, dAlpha*s.alpha/sp.Alpha)

		// alpha = sp.Alpha * exp(-power) => d(alpha)/d(power) = -alpha.
		// power = 0.5*(Cxx*dx^2 + Cyy*dy^2) + Cxy*dx*dy at delta = pixel -
		// mean2d, so d(power)/d(mean2d) = -d(power)/d(delta).
		delta := gmath.Sub2(pixel, sp.Mean2D)
		dPowerDDelta := gmath.Vec2{
			sp.Conic.XX*delta[0] + sp.Conic.XY*delta[1],
			sp.Conic.XY*delta[0] + sp.Conic.YY*delta[1],
		}
		dAlphaDPower := -s.alpha
		scale := dAlpha * dAlphaDPower
		device.AtomicAddFloat32(&g.DMean2D[0], -scale*dPowerDDelta[0])
		device.AtomicAddFloat32(&g.DMean2D[1], -scale*dPowerDDelta[1])
		device.AtomicAddFloat32(&g.DConic.XX, scale*0.5*delta[0]*delta[0])
		device.AtomicAddFloat32(&g.DConic.XY, scale*delta[0]*delta[1])
		device.AtomicAddFloat32(&g.DConic.YY, scale*0.5*delta[1]*delta[1])

		suffixR += weight * sp.RGB[0]
		suffixG += weight * sp.RGB[1]
		suffixB += weight * sp.RGB[2]
	}
}
