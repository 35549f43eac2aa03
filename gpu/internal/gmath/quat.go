// SPDX-License-Identifier: Unlicense OR MIT

package gmath

// Quat is a (w,x,y,z) rotation quaternion, the layout spec.md's Splat.quat
// uses. Operation choices follow mrigankad-gorenderengine's math.Quaternion
// (there ordered x,y,z,w) adapted to the w-first layout this module's data
// model requires.
type Quat struct {
	W, X, Y, Z float32
}

// NormSq returns the squared norm; a degenerate splat has NormSq ≈ 0 (§4.1).
func (q Quat) NormSq() float32 {
	return q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z
}

func (q Quat) Normalize() Quat {
	n2 := q.NormSq()
	if n2 == 0 {
		return q
	}
	inv := invSqrt(n2)
	return Quat{q.W * inv, q.X * inv, q.Y * inv, q.Z * inv}
}

// RotMat converts a normalized quaternion to a 3x3 rotation matrix using the
// standard quaternion-to-matrix closed form.
func (q Quat) RotMat() Mat3 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	x2, y2, z2 := x+x, y+y, z+z
	xx, xy, xz := x*x2, x*y2, x*z2
	yy, yz, zz := y*y2, y*z2, z*z2
	wx, wy, wz := w*x2, w*y2, w*z2
	return Mat3{
		{1 - (yy + zz), xy - wz, xz + wy},
		{xy + wz, 1 - (xx + zz), yz - wx},
		{xz - wy, yz + wx, 1 - (xx + yy)},
	}
}

func invSqrt(v float32) float32 {
	return 1 / sqrt32(v)
}
