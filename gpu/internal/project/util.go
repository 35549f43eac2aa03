// SPDX-License-Identifier: Unlicense OR MIT

package project

import "math"

func mathExp(v float64) float64 { return math.Exp(v) }
func sqrtf(v float32) float32   { return float32(math.Sqrt(float64(v))) }
func logf(v float32) float32    { return float32(math.Log(float64(v))) }
func expf32(v float32) float32  { return float32(math.Exp(float64(v))) }
func sigmoidf(v float32) float32 {
	return float32(1 / (1 + math.Exp(float64(-v))))
}
