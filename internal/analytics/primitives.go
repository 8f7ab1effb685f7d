// Package analytics computes randomness diagnostics over a window of roulette
// outcomes. Every function is pure: no state survives between calls.
package analytics

import (
	"math"

	"github.com/montanaflynn/stats"
)

const (
	// Epsilon floors variances before a square root.
	Epsilon = 1e-9
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m, err := stats.Mean(xs)
	if err != nil {
		return 0
	}
	return m
}

// Std returns the population standard deviation, or 0 below two samples.
func Std(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	s, err := stats.StandardDeviationPopulation(xs)
	if err != nil {
		return 0
	}
	return s
}

// Clamp limits x to [lo, hi]. NaN clamps to lo.
func Clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return math.Max(lo, math.Min(hi, x))
}

func toFloats(window []int) []float64 {
	out := make([]float64, len(window))
	for i, n := range window {
		out[i] = float64(n)
	}
	return out
}

func meanAbs(xs []float64) float64 {
	abs := make([]float64, len(xs))
	for i, x := range xs {
		abs[i] = math.Abs(x)
	}
	return Mean(abs)
}
