// SPDX-License-Identifier: Unlicense OR MIT

package raster

import "math"

func expf32(v float32) float32 { return float32(math.Exp(float64(v))) }
