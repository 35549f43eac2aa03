// SPDX-License-Identifier: Unlicense OR MIT

package isect

import (
	"math"

	"github.com/brush-gfx/brush/gpu/internal/gmath"
)

// TileSize is the fixed 16x16-pixel tile unit (spec.md glossary).
const TileSize = 16

// TileRange returns the half-open [minTX,maxTX) x [minTY,maxTY) tile-space
// bounding box of the pixel-space bbox (mean2d +/- extent), clipped to
// [0,tilesX) x [0,tilesY).
func TileRange(mean2d, extent gmath.Vec2, tilesX, tilesY int) (minTX, minTY, maxTX, maxTY int) {
	minPX := mean2d[0] - extent[0]
	maxPX := mean2d[0] + extent[0]
	minPY := mean2d[1] - extent[1]
	maxPY := mean2d[1] + extent[1]
	minTX = clampInt(floorDivTile(minPX), 0, tilesX)
	maxTX = clampInt(ceilDivTile(maxPX), 0, tilesX)
	minTY = clampInt(floorDivTile(minPY), 0, tilesY)
	maxTY = clampInt(ceilDivTile(maxPY), 0, tilesY)
	return
}

func floorDivTile(v float32) int { return int(math.Floor(float64(v) / TileSize)) }
func ceilDivTile(v float32) int  { return int(math.Ceil(float64(v) / TileSize)) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ForEachTile walks candidate tiles in row-major order (ty outer, tx
// inner), calling visit(tileID) for every tile WillContribute accepts.
// spec.md §4.5 requires the counting pass (stage 3) and the writing pass
// (stage 5) to produce the identical hit sequence; both call this single
// function so there is exactly one place the traversal order is defined.
func ForEachTile(mean2d, extent gmath.Vec2, conic gmath.Mat2Sym, threshold float32, tilesX, tilesY int, visit func(tileID int)) {
	minTX, minTY, maxTX, maxTY := TileRange(mean2d, extent, tilesX, tilesY)
	for ty := minTY; ty < maxTY; ty++ {
		tileMinY := float32(ty * TileSize)
		tileMaxY := tileMinY + TileSize
		for tx := minTX; tx < maxTX; tx++ {
			tileMinX := float32(tx * TileSize)
			tileMaxX := tileMinX + TileSize
			if WillContribute(gmath.Vec2{tileMinX, tileMinY}, gmath.Vec2{tileMaxX, tileMaxY}, mean2d, conic, threshold) {
				visit(ty*tilesX + tx)
			}
		}
	}
}
