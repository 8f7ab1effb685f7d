// Package simulate runs Monte Carlo bankroll paths for flat bets on a fair
// single-zero wheel. It shows the expected drift and spread of a strategy;
// it does not look at observed spins.
package simulate

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Kind selects the bet being simulated.
type Kind string

const (
	// EvenMoney wins 18/37 of the time and pays 1:1.
	EvenMoney Kind = "even"
	// Dozen wins 12/37 of the time and pays 2:1.
	Dozen Kind = "dozen"
)

type bet struct {
	pWin   float64
	payout float64
}

var bets = map[Kind]bet{
	EvenMoney: {pWin: 18.0 / 37.0, payout: 1},
	Dozen:     {pWin: 12.0 / 37.0, payout: 2},
}

type Config struct {
	Kind    Kind
	Sims    int
	Horizon int
	Stake   float64
	Seed    uint64
}

// Summary describes the distribution of final equity across paths.
type Summary struct {
	Mean            float64 `json:"mean"`
	Median          float64 `json:"median"`
	P5              float64 `json:"p5"`
	P95             float64 `json:"p95"`
	MeanMaxDrawdown float64 `json:"mean_max_drawdown"`
}

// Run simulates cfg.Sims equity paths of cfg.Horizon flat bets each. A fixed
// seed reproduces the same paths.
func Run(cfg Config) ([][]float64, error) {
	b, ok := bets[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown bet kind %q", cfg.Kind)
	}
	if cfg.Sims < 1 {
		return nil, fmt.Errorf("sims must be at least 1")
	}
	if cfg.Horizon < 1 {
		return nil, fmt.Errorf("horizon must be at least 1")
	}
	if cfg.Stake <= 0 {
		return nil, fmt.Errorf("stake must be positive")
	}

	win := distuv.Bernoulli{P: b.pWin, Src: rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)}
	paths := make([][]float64, cfg.Sims)
	for s := range paths {
		path := make([]float64, cfg.Horizon)
		var equity float64
		for i := range path {
			if win.Rand() == 1 {
				equity += b.payout * cfg.Stake
			} else {
				equity -= cfg.Stake
			}
			path[i] = equity
		}
		paths[s] = path
	}
	return paths, nil
}

// MaxDrawdown is the deepest fall from a running peak, as a non-positive number.
func MaxDrawdown(path []float64) float64 {
	peak := math.Inf(-1)
	var maxDD float64
	for _, x := range path {
		if x > peak {
			peak = x
		}
		if dd := x - peak; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// Summarize reduces paths to final-equity percentiles and mean drawdown.
func Summarize(paths [][]float64) Summary {
	if len(paths) == 0 {
		return Summary{}
	}
	finals := make([]float64, 0, len(paths))
	drawdowns := make([]float64, 0, len(paths))
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		finals = append(finals, p[len(p)-1])
		drawdowns = append(drawdowns, MaxDrawdown(p))
	}
	if len(finals) == 0 {
		return Summary{}
	}
	sort.Float64s(finals)

	mean, _ := stats.Mean(finals)
	ddMean, _ := stats.Mean(drawdowns)
	n := len(finals)
	return Summary{
		Mean:            mean,
		Median:          finals[n/2],
		P5:              finals[int(math.Floor(float64(n)*0.05))],
		P95:             finals[int(math.Floor(float64(n)*0.95))],
		MeanMaxDrawdown: ddMean,
	}
}

// ExpectedValue is the theoretical equity after horizon bets.
func ExpectedValue(kind Kind, horizon int, stake float64) (float64, error) {
	b, ok := bets[kind]
	if !ok {
		return 0, fmt.Errorf("unknown bet kind %q", kind)
	}
	perBet := b.pWin*b.payout*stake - (1-b.pWin)*stake
	return perBet * float64(horizon), nil
}
