package analytics

import (
	"math"
	"sort"
)

// RawFrequency counts occurrences per pocket. Out-of-range values are skipped.
func RawFrequency(window []int) [NumPockets]int {
	var f [NumPockets]int
	for _, n := range window {
		if n >= 0 && n < NumPockets {
			f[n]++
		}
	}
	return f
}

// EWMAFrequency weights each hit by exp(-lambda*age), age 0 being the most
// recent spin, and normalizes by the total weight. An empty window yields zeros.
func EWMAFrequency(window []int, lambda float64) [NumPockets]float64 {
	var w [NumPockets]float64
	var total float64
	last := len(window) - 1
	for i, n := range window {
		if n < 0 || n >= NumPockets {
			continue
		}
		weight := math.Exp(-lambda * float64(last-i))
		w[n] += weight
		total += weight
	}
	if total == 0 {
		total = 1
	}
	for i := range w {
		w[i] /= total
	}
	return w
}

// DirichletPosteriorMean smooths counts with a symmetric prior of alpha per pocket.
func DirichletPosteriorMean(freq [NumPockets]int, alpha float64) [NumPockets]float64 {
	var n int
	for _, c := range freq {
		n += c
	}
	denom := float64(n) + NumPockets*alpha
	var post [NumPockets]float64
	for i, c := range freq {
		post[i] = (float64(c) + alpha) / denom
	}
	return post
}

// BayesDelta is the posterior mean minus the fair share 1/37 for every pocket.
func BayesDelta(freq [NumPockets]int, alpha float64) [NumPockets]float64 {
	post := DirichletPosteriorMean(freq, alpha)
	var d [NumPockets]float64
	for i, p := range post {
		d[i] = p - 1.0/NumPockets
	}
	return d
}

// Delta is one ranked entry of a per-pocket deviation.
type Delta struct {
	N     int     `json:"n"`
	Delta float64 `json:"d"`
}

// TopBayes ranks pockets by descending posterior excess.
func TopBayes(deltas [NumPockets]float64, limit int) []Delta {
	entries := make([]Delta, NumPockets)
	for n, d := range deltas {
		entries[n] = Delta{N: n, Delta: d}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Delta > entries[j].Delta
	})
	if limit >= 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

// TopFrequent ranks pockets by raw count.
func TopFrequent(freq [NumPockets]int, limit int) []Hot {
	return TopHot(freq, limit)
}

// AgesSinceLast returns how many spins ago each pocket last hit; 0 means the
// latest spin, -1 means absent from the window.
func AgesSinceLast(window []int) [NumPockets]int {
	var ages [NumPockets]int
	for i := range ages {
		ages[i] = -1
	}
	last := len(window) - 1
	for i := last; i >= 0; i-- {
		n := window[i]
		if n < 0 || n >= NumPockets || ages[n] >= 0 {
			continue
		}
		ages[n] = last - i
	}
	return ages
}

// ColdByAge ranks pockets by time since their last hit. Pockets never seen come first.
func ColdByAge(ages [NumPockets]int, limit int) []Hot {
	entries := make([]Hot, NumPockets)
	for n, a := range ages {
		entries[n] = Hot{N: n, Count: a}
	}
	rank := func(a int) int {
		if a < 0 {
			return math.MaxInt
		}
		return a
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return rank(entries[i].Count) > rank(entries[j].Count)
	})
	if limit >= 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
