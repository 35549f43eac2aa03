// SPDX-License-Identifier: Unlicense OR MIT

// Package isect implements spec.md §4.3/§4.5 (splat-to-tile intersection
// counting and the (tile_id, compact_gid) record emission) and §4.7
// (tile-offset table construction). There is no teacher analogue for tile
// binning against an anisotropic kernel; this is built directly from
// spec.md's stated "StopThePop" rule.
package isect

import (
	"github.com/brush-gfx/brush/gpu/internal/gmath"
)

// Power evaluates the Gaussian conic power sigma = 0.5*(Cx*dx^2 + Cz*dy^2)
// + Cy*dx*dy at pixel-space delta = point - mean2d (spec.md §4.8).
func Power(conic gmath.Mat2Sym, delta gmath.Vec2) float32 {
	return 0.5*(conic.XX*delta[0]*delta[0]+conic.YY*delta[1]*delta[1]) + conic.XY*delta[0]*delta[1]
}

// WillContribute is the StopThePop rule of spec.md §4.3: true if mean2d
// lies inside the tile rectangle, else the power evaluated at the point of
// the tile rectangle's boundary closest to mean2d (the per-axis clamp of
// mean2d into the rectangle) compared against the power threshold. That
// point is the Euclidean-closest one, not the minimizer of the anisotropic
// power over the tile boundary, so for an elongated conic the power there
// can exceed the boundary minimum and a tile the level set reaches can be
// rejected.
func WillContribute(tileMin, tileMax, mean2d gmath.Vec2, conic gmath.Mat2Sym, threshold float32) bool {
	if mean2d[0] >= tileMin[0] && mean2d[0] <= tileMax[0] && mean2d[1] >= tileMin[1] && mean2d[1] <= tileMax[1] {
		return true
	}
	closest := gmath.Vec2{
		clamp(mean2d[0], tileMin[0], tileMax[0]),
		clamp(mean2d[1], tileMin[1], tileMax[1]),
	}
	delta := gmath.Sub2(closest, mean2d)
	power := Power(conic, delta)
	return power <= threshold
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
