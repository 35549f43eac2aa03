// SPDX-License-Identifier: Unlicense OR MIT

package gmath

import "math"

// Mat3 is a row-major 3x3 matrix.
type Mat3 [3][3]float32

func sqrt32(v float32) float32 { return float32(math.Sqrt(float64(v))) }

// MulV multiplies the matrix by a column vector.
func (m Mat3) MulV(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// Mul multiplies two 3x3 matrices, m*n.
func (m Mat3) Mul(n Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float32
			for k := 0; k < 3; k++ {
				s += m[i][k] * n[k][j]
			}
			r[i][j] = s
		}
	}
	return r
}

// Transpose returns the transpose of m.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		{m[0][0], m[1][0], m[2][0]},
		{m[0][1], m[1][1], m[2][1]},
		{m[0][2], m[1][2], m[2][2]},
	}
}

// Add returns m+n, entrywise.
func (m Mat3) Add(n Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][j] + n[i][j]
		}
	}
	return r
}

// Diag3 returns diag(s[0], s[1], s[2]).
func Diag3(s Vec3) Mat3 {
	return Mat3{
		{s[0], 0, 0},
		{0, s[1], 0},
		{0, 0, s[2]},
	}
}

// Mat2Sym is a symmetric 2x2 matrix stored as its three distinct entries,
// matching the conic's packed (Cx, Cy, Cz) layout used throughout §4.
type Mat2Sym struct {
	XX, XY, YY float32
}

// AddDiag adds a scalar multiple of the identity (the "blur" diagonal in §4.1).
func (m Mat2Sym) AddDiag(v float32) Mat2Sym {
	return Mat2Sym{m.XX + v, m.XY, m.YY + v}
}

// AddSym adds two symmetric 2x2 matrices entrywise.
func (m Mat2Sym) AddSym(n Mat2Sym) Mat2Sym {
	return Mat2Sym{m.XX + n.XX, m.XY + n.XY, m.YY + n.YY}
}

func (m Mat2Sym) Det() float32 {
	return m.XX*m.YY - m.XY*m.XY
}

// Inverse returns the inverse of the symmetric 2x2 matrix (the conic) and
// whether it is well-conditioned enough to use.
func (m Mat2Sym) Inverse() (Mat2Sym, bool) {
	det := m.Det()
	if det <= 0 {
		return Mat2Sym{}, false
	}
	invDet := 1 / det
	return Mat2Sym{
		XX: m.YY * invDet,
		XY: -m.XY * invDet,
		YY: m.XX * invDet,
	}, true
}
