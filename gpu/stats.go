// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"fmt"
	"time"
)

// Stats holds per-stage wall-clock timings for the most recent Render
// call, mirroring the teacher's Frame/timers/Profile shape (gpu/compute.go)
// with stage names renamed to this pipeline's forward stages 1-8 (the
// backward stages are not timed). There is no
// driver-level timer-query feature here (no GPU, no Caps.FeatureTimers), so
// each stage is bracketed with time.Now/time.Since rather than queued GPU
// timer objects, but the begin/end/profile-string shape is the teacher's.
type Stats struct {
	Cull            time.Duration
	DepthSort       time.Duration
	Visible         time.Duration
	Scan            time.Duration
	MapToIntersects time.Duration
	TileSort        time.Duration
	TileOffsets     time.Duration
	Raster          time.Duration

	NumVisible      int
	NumIntersects   int
}

// Profile formats Stats the way the teacher's compute.Profile() does: a
// compact fixed-width one-liner suitable for an on-screen overlay or log
// line.
func (s Stats) Profile() string {
	total := s.Cull + s.DepthSort + s.Visible + s.Scan + s.MapToIntersects + s.TileSort + s.TileOffsets + s.Raster
	const q = 100 * time.Microsecond
	return fmt.Sprintf(
		"ft:%7s cull:%7s sort:%7s vis:%7s scan:%7s map:%7s tsort:%7s toff:%7s ras:%7s nv:%d ni:%d",
		total.Round(q), s.Cull.Round(q), s.DepthSort.Round(q), s.Visible.Round(q), s.Scan.Round(q),
		s.MapToIntersects.Round(q), s.TileSort.Round(q), s.TileOffsets.Round(q), s.Raster.Round(q),
		s.NumVisible, s.NumIntersects,
	)
}

type stopwatch struct {
	start time.Time
}

func startStopwatch() stopwatch { return stopwatch{start: time.Now()} }

func (s stopwatch) elapsed() time.Duration { return time.Since(s.start) }
