// SPDX-License-Identifier: Unlicense OR MIT

// Package splat holds the persistent per-point parameters the rasterizer
// core reads (spec.md §3) and the gradient buffers backward produces onto
// them. It mirrors the teacher's struct-of-parallel-slices shape
// (gpu/compute.go's collector/opsCollector group parallel slices the same
// way) rather than an array-of-structs, since every stage in §4 processes
// one attribute kind across all points at once.
package splat

import "fmt"

// MaxSHBands is the largest spherical-harmonic band degree the core
// supports (spec.md §1 non-goals: "support for more than 5
// spherical-harmonic bands" — bands 0..4 inclusive, 5 bands total).
const MaxSHBands = 4

// ShCoeffCount returns (degree+1)^2, the number of RGB triples per splat
// for the given active SH degree.
func ShCoeffCount(degree int) int {
	n := degree + 1
	return n * n
}

// Params is the persistent per-point parameter set (spec.md §3). All
// slices share length N; SHCoeffs holds one slice per splat of
// ShCoeffCount(Degree) consecutive RGB triples (3 float32 each: R,G,B).
type Params struct {
	Mean      [][3]float32 // world-space position
	LogScale  [][3]float32 // scale = exp(LogScale)
	Quat      [][4]float32 // (w,x,y,z)
	RawOpac   []float32    // opacity = sigmoid(RawOpac)
	SHCoeffs  [][]float32  // per splat: ShCoeffCount(Degree)*3 floats
	Degree    int          // active SH degree, 0..MaxSHBands
}

// N returns the point count.
func (p *Params) N() int { return len(p.Mean) }

// Validate checks the §3 length invariants. Mismatched lengths are a
// programmer error (spec.md §7) — the caller should fix construction, so
// Validate returns an error the façade turns into a panic rather than a
// recoverable condition.
func (p *Params) Validate() error {
	n := p.N()
	if len(p.LogScale) != n {
		return fmt.Errorf("splat: LogScale has %d entries, want %d", len(p.LogScale), n)
	}
	if len(p.Quat) != n {
		return fmt.Errorf("splat: Quat has %d entries, want %d", len(p.Quat), n)
	}
	if len(p.RawOpac) != n {
		return fmt.Errorf("splat: RawOpac has %d entries, want %d", len(p.RawOpac), n)
	}
	if len(p.SHCoeffs) != n {
		return fmt.Errorf("splat: SHCoeffs has %d entries, want %d", len(p.SHCoeffs), n)
	}
	if p.Degree < 0 || p.Degree > MaxSHBands {
		return fmt.Errorf("splat: degree %d out of range [0,%d]", p.Degree, MaxSHBands)
	}
	want := ShCoeffCount(p.Degree) * 3
	for i, c := range p.SHCoeffs {
		if len(c) != want {
			return fmt.Errorf("splat: SHCoeffs[%d] has %d floats, want %d", i, len(c), want)
		}
	}
	return nil
}

// Grads is the per-splat gradient set, shaped identically to Params. It is
// the destination of project-backward (spec.md §4.10); every write lands
// at a global index through the compact->global permutation, so no atomics
// are needed across splats (only within a splat, across contributing
// pixels, which is where gpu/internal/device's atomic-add emulation is
// used instead).
type Grads struct {
	Mean     [][3]float32
	LogScale [][3]float32
	Quat     [][4]float32
	RawOpac  []float32
	SHCoeffs [][]float32
}

// NewGrads allocates a zeroed Grads matching the shape of p.
func NewGrads(p *Params) *Grads {
	n := p.N()
	g := &Grads{
		Mean:     make([][3]float32, n),
		LogScale: make([][3]float32, n),
		Quat:     make([][4]float32, n),
		RawOpac:  make([]float32, n),
		SHCoeffs: make([][]float32, n),
	}
	shLen := ShCoeffCount(p.Degree) * 3
	for i := range g.SHCoeffs {
		g.SHCoeffs[i] = make([]float32, shLen)
	}
	return g
}
