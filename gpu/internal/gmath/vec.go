// SPDX-License-Identifier: Unlicense OR MIT

// Package gmath provides the 3D vector, quaternion and matrix math the
// rasterizer core needs, built on x/image/math/f32's 2D Vec2 type for the
// screen-space quantities.
package gmath

import (
	"math"

	xf32 "golang.org/x/image/math/f32"
)

// Vec3 is a 3D vector. x/image/math/f32 only defines a 2D Vec2, so the
// 3D splat-space quantities (mean, scale, view-space position) get their
// own type here.
type Vec3 [3]float32

// Vec2 is a 2D vector, screen/NDC-space quantities shared with
// x/image/math/f32's own affine-transform math.
type Vec2 = xf32.Vec2

func V3(x, y, z float32) Vec3 { return Vec3{x, y, z} }
func V2(x, y float32) Vec2    { return Vec2{x, y} }

func Add3(a, b Vec3) Vec3 { return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func Sub3(a, b Vec3) Vec3 { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func Scale3(a Vec3, s float32) Vec3 {
	return Vec3{a[0] * s, a[1] * s, a[2] * s}
}
func Dot3(a, b Vec3) float32 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func Cross3(a, b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
func Len3(a Vec3) float32 { return float32(math.Sqrt(float64(Dot3(a, a)))) }

func Normalize3(a Vec3) Vec3 {
	l := Len3(a)
	if l == 0 {
		return a
	}
	return Scale3(a, 1/l)
}

func Add2(a, b Vec2) Vec2 { return Vec2{a[0] + b[0], a[1] + b[1]} }
func Sub2(a, b Vec2) Vec2 { return Vec2{a[0] - b[0], a[1] - b[1]} }
