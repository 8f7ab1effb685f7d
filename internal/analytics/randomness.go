package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	minRunsLength  = 10
	minCusumLength = 40
	autocorrSlack  = 5
	cusumSplit     = 0.6
	minPValueN     = 20
)

// ChiSquare is Pearson's goodness-of-fit statistic against a uniform 1/37.
// An empty window has no expectation to compare against and scores 0.
func ChiSquare(freq [NumPockets]int, n int) float64 {
	if n <= 0 {
		return 0
	}
	exp := float64(n) / NumPockets
	var chi float64
	for _, f := range freq {
		d := float64(f) - exp
		chi += d * d / exp
	}
	return chi
}

// ChiSquarePValue is the upper-tail probability of chi with 36 degrees of
// freedom. Windows shorter than 20 spins report 1.
func ChiSquarePValue(chi float64, n int) float64 {
	if n < minPValueN || math.IsNaN(chi) {
		return 1
	}
	dist := distuv.ChiSquared{K: NumPockets - 1}
	return Clamp(dist.Survival(chi), 0, 1)
}

// GTest is the log-likelihood ratio statistic. Empty bins contribute nothing.
func GTest(freq [NumPockets]int, n int) float64 {
	exp := float64(n) / NumPockets
	var g float64
	for _, f := range freq {
		if f > 0 {
			g += 2 * float64(f) * math.Log(float64(f)/exp)
		}
	}
	return g
}

// Entropy is the Shannon entropy of the empirical distribution in bits.
func Entropy(freq [NumPockets]int, n int) float64 {
	var h float64
	for _, f := range freq {
		if f > 0 {
			p := float64(f) / float64(n)
			h -= p * math.Log2(p)
		}
	}
	return h
}

// RunsZ is the Wald-Wolfowitz runs test z-score of a 0/1 series. Short or
// single-class series are neutral.
func RunsZ(bin []int) float64 {
	if len(bin) < minRunsLength {
		return 0
	}
	runs := 1
	for i := 1; i < len(bin); i++ {
		if bin[i] != bin[i-1] {
			runs++
		}
	}
	var n1 int
	for _, b := range bin {
		if b == 1 {
			n1++
		}
	}
	n0 := len(bin) - n1
	if n0 == 0 || n1 == 0 {
		return 0
	}
	a, b := float64(n0), float64(n1)
	mu := 1 + 2*a*b/(a+b)
	variance := 2 * a * b * (2*a*b - a - b) / ((a + b) * (a + b) * (a + b - 1))
	return (float64(runs) - mu) / math.Sqrt(math.Max(Epsilon, variance))
}

// ColorSeries maps red to 1 and black to 0, dropping zero.
func ColorSeries(window []int) []int {
	out := make([]int, 0, len(window))
	for _, n := range window {
		if n == 0 {
			continue
		}
		if IsRed(n) {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// HighLowSeries maps 19-36 to 1 and 1-18 to 0, dropping zero.
func HighLowSeries(window []int) []int {
	out := make([]int, 0, len(window))
	for _, n := range window {
		if n == 0 {
			continue
		}
		if n >= 19 {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// Autocorr returns the sample autocorrelation at lags 1..maxLag, or zeros
// when the window holds fewer than maxLag+5 spins.
func Autocorr(window []int, maxLag int) []float64 {
	if maxLag < 0 {
		maxLag = 0
	}
	ac := make([]float64, maxLag)
	n := len(window)
	if n < maxLag+autocorrSlack {
		return ac
	}
	xs := toFloats(window)
	m := Mean(xs)
	var denom float64
	for _, x := range xs {
		denom += (x - m) * (x - m)
	}
	if denom == 0 {
		denom = 1
	}
	for k := 1; k <= maxLag; k++ {
		var num float64
		for i := k; i < n; i++ {
			num += (xs[i] - m) * (xs[i-k] - m)
		}
		ac[k-1] = num / denom
	}
	return ac
}

// CusumZ compares the mean of the last 40% of the window with the first 60%,
// in units of the baseline standard deviation.
func CusumZ(window []int) float64 {
	if len(window) < minCusumLength {
		return 0
	}
	xs := toFloats(window)
	split := int(math.Floor(float64(len(xs)) * cusumSplit))
	baseline, recent := xs[:split], xs[split:]
	sd := Std(baseline)
	if sd == 0 {
		sd = 1
	}
	return (Mean(recent) - Mean(baseline)) / sd
}
