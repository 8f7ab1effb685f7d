package analytics

import "math"

// Normalization maps each statistic through (x-offset)/spread clamped to [0,1].
// The values are empirical calibrations and are kept as-is for output parity.
const (
	chiOffset      = 45.0
	chiSpread      = 25.0
	gOffset        = 45.0
	gSpread        = 25.0
	entropyCeiling = 5.0
	entropySpread  = 0.6
	runsOffset     = 1.8
	runsSpread     = 1.4
	acOffset       = 0.06
	acSpread       = 0.10
	cusumOffset    = 1.6
	cusumSpread    = 1.8
)

// Composite weights; they sum to 1.
const (
	weightChi         = 0.22
	weightG           = 0.18
	weightEntropy     = 0.15
	weightRunsColor   = 0.15
	weightRunsHighLow = 0.10
	weightAutocorr    = 0.10
	weightCusum       = 0.10
)

const (
	strongScore = 70
	mildScore   = 45

	cusumFlagZ   = 2.5
	runsFlagZ    = 2.5
	autocorrFlag = 0.18
)

// Labels returned by LabelFor.
const (
	LabelNormal = "normal"
	LabelMild   = "mild deviation"
	LabelStrong = "strong deviation/regime"
)

// Advisory flags returned by FlagsFor.
const (
	FlagRegimeShift   = "regime shift (CUSUM)"
	FlagColorRuns     = "unusual color sequence (runs)"
	FlagAutocorrelate = "elevated autocorrelation"
)

// Components holds the normalized [0,1] contribution of each statistic.
type Components struct {
	Chi         float64 `json:"chi"`
	G           float64 `json:"g"`
	Entropy     float64 `json:"entropy"`
	RunsColor   float64 `json:"runs_color"`
	RunsHighLow float64 `json:"runs_high_low"`
	Autocorr    float64 `json:"autocorr"`
	Cusum       float64 `json:"cusum"`
}

// Normalize maps the raw statistics of m onto [0,1].
func Normalize(m Metrics) Components {
	return Components{
		Chi:         Clamp((m.Chi-chiOffset)/chiSpread, 0, 1),
		G:           Clamp((m.G-gOffset)/gSpread, 0, 1),
		Entropy:     Clamp((entropyCeiling-m.Entropy)/entropySpread, 0, 1),
		RunsColor:   Clamp((math.Abs(m.RunsColor)-runsOffset)/runsSpread, 0, 1),
		RunsHighLow: Clamp((math.Abs(m.RunsHighLow)-runsOffset)/runsSpread, 0, 1),
		Autocorr:    Clamp((meanAbs(m.AC)-acOffset)/acSpread, 0, 1),
		Cusum:       Clamp((math.Abs(m.Cusum)-cusumOffset)/cusumSpread, 0, 1),
	}
}

// ComputeScore folds the normalized components into an integer in [0,100].
func ComputeScore(m Metrics) int {
	c := Normalize(m)
	raw := weightChi*c.Chi +
		weightG*c.G +
		weightEntropy*c.Entropy +
		weightRunsColor*c.RunsColor +
		weightRunsHighLow*c.RunsHighLow +
		weightAutocorr*c.Autocorr +
		weightCusum*c.Cusum
	return int(Clamp(math.Floor(100*raw+0.5), 0, 100))
}

// LabelFor buckets a composite score into a verdict.
func LabelFor(score int) string {
	switch {
	case score >= strongScore:
		return LabelStrong
	case score >= mildScore:
		return LabelMild
	default:
		return LabelNormal
	}
}

// FlagsFor lists the advisories that fire for m, independent of the score.
func FlagsFor(m Metrics) []string {
	flags := []string{}
	if math.Abs(m.Cusum) > cusumFlagZ {
		flags = append(flags, FlagRegimeShift)
	}
	if math.Abs(m.RunsColor) > runsFlagZ {
		flags = append(flags, FlagColorRuns)
	}
	if meanAbs(m.AC) > autocorrFlag {
		flags = append(flags, FlagAutocorrelate)
	}
	return flags
}
