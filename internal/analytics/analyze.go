package analytics

// Defaults applied by Options for unset fields.
const (
	DefaultMaxLag    = 8
	DefaultLambda    = 0.08
	DefaultAlpha     = 1.0
	DefaultHotWindow = 60
	DefaultNeighborK = 2

	TopHotLimit   = 8
	TopBayesLimit = 10
	ColdLimit     = 8
)

// Options tunes Analyze. Negative fields fall back to the defaults above.
// Zero also selects the default for MaxLag, Alpha and HotWindow (min(60, N)).
// A zero NeighborK credits each hit alone and a zero Lambda weights every
// spin equally.
type Options struct {
	MaxLag    int     `json:"max_lag" mapstructure:"max_lag"`
	Lambda    float64 `json:"lambda" mapstructure:"lambda"`
	Alpha     float64 `json:"alpha" mapstructure:"alpha"`
	HotWindow int     `json:"hot_window" mapstructure:"hot_window"`
	NeighborK int     `json:"neighbor_k" mapstructure:"neighbor_k"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaxLag:    DefaultMaxLag,
		Lambda:    DefaultLambda,
		Alpha:     DefaultAlpha,
		NeighborK: DefaultNeighborK,
	}
}

func (o Options) withDefaults(n int) Options {
	if o.MaxLag <= 0 {
		o.MaxLag = DefaultMaxLag
	}
	if o.Lambda < 0 {
		o.Lambda = DefaultLambda
	}
	if o.Alpha <= 0 {
		o.Alpha = DefaultAlpha
	}
	if o.HotWindow <= 0 {
		o.HotWindow = min(DefaultHotWindow, n)
	}
	if o.NeighborK < 0 {
		o.NeighborK = DefaultNeighborK
	}
	return o
}

// Metrics is the snapshot of every statistic computed for one window.
type Metrics struct {
	N           int                 `json:"n"`
	Chi         float64             `json:"chi"`
	ChiP        float64             `json:"chi_p"`
	G           float64             `json:"g"`
	Entropy     float64             `json:"entropy"`
	RunsColor   float64             `json:"runs_color"`
	RunsHighLow float64             `json:"runs_high_low"`
	AC          []float64           `json:"ac"`
	Cusum       float64             `json:"cusum"`
	EWMA        [NumPockets]float64 `json:"ewma"`
	Posterior   [NumPockets]float64 `json:"posterior"`
	TopHot      []Hot               `json:"top_hot"`
	Freq        [NumPockets]int     `json:"freq"`
}

// Breakdown carries the descriptive lists that accompany the metrics.
type Breakdown struct {
	Colors      Colors  `json:"colors"`
	TopFrequent []Hot   `json:"top_frequent"`
	ColdByAge   []Hot   `json:"cold_by_age"`
	TopBayes    []Delta `json:"top_bayes"`
	ColorStreak Streak  `json:"color_streak"`
}

// Result bundles the metrics with the derived score, label and flags.
type Result struct {
	Metrics    Metrics    `json:"metrics"`
	Components Components `json:"components"`
	Breakdown  Breakdown  `json:"breakdown"`
	Score      int        `json:"score"`
	Label      string     `json:"label"`
	Flags      []string   `json:"flags"`
}

// Analyze computes every diagnostic over window (most recent last). The same
// window and options always produce the same result.
func Analyze(window []int, opts Options) Result {
	n := len(window)
	o := opts.withDefaults(n)

	freq := RawFrequency(window)
	chi := ChiSquare(freq, n)

	hotWindow := window
	if o.HotWindow < n {
		hotWindow = window[n-o.HotWindow:]
	}

	m := Metrics{
		N:           n,
		Chi:         chi,
		ChiP:        ChiSquarePValue(chi, n),
		G:           GTest(freq, n),
		Entropy:     Entropy(freq, n),
		RunsColor:   RunsZ(ColorSeries(window)),
		RunsHighLow: RunsZ(HighLowSeries(window)),
		AC:          Autocorr(window, o.MaxLag),
		Cusum:       CusumZ(window),
		EWMA:        EWMAFrequency(window, o.Lambda),
		Posterior:   DirichletPosteriorMean(freq, o.Alpha),
		TopHot:      TopHot(SectorHotness(hotWindow, o.NeighborK), TopHotLimit),
		Freq:        freq,
	}

	// an empty window carries no evidence either way
	var score int
	var components Components
	if n > 0 {
		score = ComputeScore(m)
		components = Normalize(m)
	}
	return Result{
		Metrics:    m,
		Components: components,
		Breakdown: Breakdown{
			Colors:      CountColors(window),
			TopFrequent: TopFrequent(freq, TopHotLimit),
			ColdByAge:   ColdByAge(AgesSinceLast(window), ColdLimit),
			TopBayes:    TopBayes(BayesDelta(freq, o.Alpha), TopBayesLimit),
			ColorStreak: LongestStreak(colorLabels(window)),
		},
		Score: score,
		Label: LabelFor(score),
		Flags: FlagsFor(m),
	}
}
