package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeat(seq []int, times int) []int {
	out := make([]int, 0, len(seq)*times)
	for i := 0; i < times; i++ {
		out = append(out, seq...)
	}
	return out
}

func sequence(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		out = append(out, n)
	}
	return out
}

func constant(n, length int) []int {
	return repeat([]int{n}, length)
}

func sum[T int | float64](xs []T) T {
	var s T
	for _, x := range xs {
		s += x
	}
	return s
}

func TestPrimitives(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-12)
	assert.Equal(t, 0.0, Std([]float64{5}))
	assert.InDelta(t, 2.0, Std([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.Equal(t, 0.0, Clamp(-3, 0, 1))
	assert.Equal(t, 0.0, Clamp(math.NaN(), 0, 1))
}

func TestRawFrequency(t *testing.T) {
	windows := [][]int{
		nil,
		{0},
		sequence(0, 36),
		{7, 7, 7, 1, 36, 0},
		repeat([]int{3, 26, 0}, 50),
	}
	for _, w := range windows {
		f := RawFrequency(w)
		assert.Equal(t, len(w), sum(f[:]))
	}

	f := RawFrequency([]int{-1, 37, 5, 5})
	assert.Equal(t, 2, f[5])
	assert.Equal(t, 2, sum(f[:]), "out-of-range outcomes are ignored")
}

func TestEWMAFrequency(t *testing.T) {
	empty := EWMAFrequency(nil, DefaultLambda)
	assert.Equal(t, 0.0, sum(empty[:]))

	w := EWMAFrequency([]int{1, 2, 3, 4, 5, 6, 7, 1}, 0.5)
	assert.InDelta(t, 1.0, sum(w[:]), 1e-9)

	// the latest spin carries weight exp(0)=1
	recent := EWMAFrequency([]int{10, 20}, 1.0)
	assert.Greater(t, recent[20], recent[10])
	assert.InDelta(t, 1/(1+math.Exp(-1)), recent[20], 1e-12)

	// stronger decay leans harder on the latest spin
	mild := EWMAFrequency([]int{10, 20}, 0.01)
	assert.Greater(t, recent[20], mild[20])
}

func TestDirichletPosteriorMean(t *testing.T) {
	for _, alpha := range []float64{0.5, 1, 3} {
		var zero [NumPockets]int
		uniform := DirichletPosteriorMean(zero, alpha)
		assert.InDelta(t, 1.0, sum(uniform[:]), 1e-9)
		assert.InDelta(t, 1.0/NumPockets, uniform[17], 1e-12)

		post := DirichletPosteriorMean(RawFrequency([]int{1, 1, 1, 2, 36}), alpha)
		assert.InDelta(t, 1.0, sum(post[:]), 1e-9)
		assert.InDelta(t, (3+alpha)/(5+NumPockets*alpha), post[1], 1e-12)
	}
}

func TestBayesDelta(t *testing.T) {
	d := BayesDelta(RawFrequency(constant(9, 37)), 1)
	assert.InDelta(t, 0.0, sum(d[:]), 1e-9)
	top := TopBayes(d, TopBayesLimit)
	require.Len(t, top, TopBayesLimit)
	assert.Equal(t, 9, top[0].N)
	assert.Greater(t, top[0].Delta, 0.0)
}

func TestChiSquareAndGTest_Uniform(t *testing.T) {
	for _, times := range []int{1, 5, 37} {
		w := repeat(sequence(0, 36), times)
		f := RawFrequency(w)
		assert.InDelta(t, 0.0, ChiSquare(f, len(w)), 1e-9)
		assert.InDelta(t, 0.0, GTest(f, len(w)), 1e-9)
		assert.InDelta(t, math.Log2(NumPockets), Entropy(f, len(w)), 1e-9)
	}
}

func TestChiSquare_Empty(t *testing.T) {
	var f [NumPockets]int
	assert.Equal(t, 0.0, ChiSquare(f, 0))
	assert.Equal(t, 0.0, GTest(f, 0))
	assert.Equal(t, 0.0, Entropy(f, 0))
}

func TestChiSquarePValue(t *testing.T) {
	assert.Equal(t, 1.0, ChiSquarePValue(500, 10), "short windows are not tested")
	assert.InDelta(t, 1.0, ChiSquarePValue(0, 100), 1e-9)
	// 36 degrees of freedom: median is close to 35.3
	p := ChiSquarePValue(35.336, 100)
	assert.InDelta(t, 0.5, p, 0.01)
	assert.Less(t, ChiSquarePValue(3600, 100), 1e-6)
}

func TestRunsZ_Guards(t *testing.T) {
	assert.Equal(t, 0.0, RunsZ(nil))
	assert.Equal(t, 0.0, RunsZ([]int{}))
	assert.Equal(t, 0.0, RunsZ([]int{1, 0, 1, 0, 1, 0, 1, 0, 1}), "below 10 elements")
	assert.Equal(t, 0.0, RunsZ(constant(1, 30)), "single class")
	assert.Equal(t, 0.0, RunsZ(constant(0, 30)), "single class")
}

func TestRunsZ_Direction(t *testing.T) {
	alternating := repeat([]int{1, 0}, 20)
	assert.Greater(t, RunsZ(alternating), 2.5)

	clustered := append(constant(1, 20), constant(0, 20)...)
	assert.Less(t, RunsZ(clustered), -2.5)
}

func TestBinarySeries(t *testing.T) {
	w := []int{0, 1, 2, 19, 18, 36, 0}
	assert.Equal(t, []int{1, 0, 1, 1, 1}, ColorSeries(w))
	assert.Equal(t, []int{0, 0, 1, 0, 1}, HighLowSeries(w))
}

func TestAutocorr(t *testing.T) {
	for _, lag := range []int{1, 4, 8} {
		ac := Autocorr(sequence(1, lag+4), lag)
		require.Len(t, ac, lag)
		for _, v := range ac {
			assert.Equal(t, 0.0, v)
		}
	}

	flat := Autocorr(constant(5, 40), 8)
	for _, v := range flat {
		assert.Equal(t, 0.0, v, "constant series has zero covariance")
	}

	alt := Autocorr(repeat([]int{1, 2}, 25), 2)
	assert.InDelta(t, -0.98, alt[0], 1e-9)
	assert.InDelta(t, 0.96, alt[1], 1e-9)
}

func TestCusumZ(t *testing.T) {
	assert.Equal(t, 0.0, CusumZ(sequence(0, 38)))
	assert.Equal(t, 0.0, CusumZ(constant(7, 100)))

	shift := append(repeat([]int{1, 3}, 30), repeat([]int{30, 32}, 20)...)
	assert.Greater(t, CusumZ(shift), 2.5)
}

func TestNeighborsOf(t *testing.T) {
	for n := 0; n < NumPockets; n++ {
		assert.Equal(t, []int{n}, NeighborsOf(n, 0))
		for k := 1; 2*k+1 <= NumPockets; k++ {
			assert.Len(t, NeighborsOf(n, k), 2*k+1)
		}
	}
	assert.Equal(t, []int{3, 26, 0, 32, 15}, NeighborsOf(0, 2))
	assert.Equal(t, []int{35, 3, 26, 0, 32}, NeighborsOf(26, 2))
	assert.Empty(t, NeighborsOf(37, 2))
	assert.Empty(t, NeighborsOf(-1, 2))
}

func TestWheelTables(t *testing.T) {
	seen := map[int]bool{}
	for i, n := range WheelEU {
		seen[n] = true
		idx, ok := WheelIndex(n)
		require.True(t, ok)
		assert.Equal(t, i, idx)
	}
	assert.Len(t, seen, NumPockets)

	var reds int
	for n := 1; n < NumPockets; n++ {
		if IsRed(n) {
			reds++
		}
	}
	assert.Equal(t, 18, reds)
	assert.False(t, IsRed(0))
}

func TestSectorHotness(t *testing.T) {
	score := SectorHotness([]int{0, 0, 32}, 1)
	assert.Equal(t, 3, score[32])
	assert.Equal(t, 3, score[0])
	assert.Equal(t, 2, score[26])
	assert.Equal(t, 1, score[15])
	assert.Equal(t, 9, sum(score[:]))

	top := TopHot(score, TopHotLimit)
	require.Len(t, top, TopHotLimit)
	// ties keep ascending pocket order
	assert.Equal(t, Hot{N: 0, Count: 3}, top[0])
	assert.Equal(t, Hot{N: 32, Count: 3}, top[1])
	assert.Equal(t, Hot{N: 26, Count: 2}, top[2])
}

func TestAgesSinceLast(t *testing.T) {
	ages := AgesSinceLast([]int{5, 9, 5, 12})
	assert.Equal(t, 0, ages[12])
	assert.Equal(t, 1, ages[5])
	assert.Equal(t, 2, ages[9])
	assert.Equal(t, -1, ages[0])

	cold := ColdByAge(ages, ColdLimit)
	require.Len(t, cold, ColdLimit)
	assert.Equal(t, -1, cold[0].Count, "never seen pockets rank first")
	assert.Equal(t, 0, cold[0].N)
}

func TestComputeScore_Bounds(t *testing.T) {
	extreme := Metrics{
		Chi: 1e9, G: 1e9, Entropy: -10, RunsColor: -50, RunsHighLow: 50,
		AC: []float64{1, -1, 1}, Cusum: 1e6,
	}
	assert.Equal(t, 100, ComputeScore(extreme))
	assert.Equal(t, LabelStrong, LabelFor(ComputeScore(extreme)))

	calm := Metrics{Entropy: 5.2, AC: make([]float64, 8)}
	assert.Equal(t, 0, ComputeScore(calm))
	assert.Equal(t, LabelNormal, LabelFor(0))

	nan := Metrics{Chi: math.NaN(), Entropy: math.NaN(), AC: []float64{math.NaN()}}
	s := ComputeScore(nan)
	assert.GreaterOrEqual(t, s, 0)
	assert.LessOrEqual(t, s, 100)
}

func TestLabelFor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, LabelNormal},
		{44, LabelNormal},
		{45, LabelMild},
		{69, LabelMild},
		{70, LabelStrong},
		{100, LabelStrong},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LabelFor(tt.score), "score %d", tt.score)
	}
}

func TestFlagsFor(t *testing.T) {
	assert.Empty(t, FlagsFor(Metrics{AC: []float64{0.1}}))
	flags := FlagsFor(Metrics{Cusum: -2.6, RunsColor: 2.6, AC: []float64{0.3, -0.1}})
	assert.Equal(t, []string{FlagRegimeShift, FlagColorRuns, FlagAutocorrelate}, flags)
}

func TestAnalyze_UniformWindow(t *testing.T) {
	w := repeat(sequence(0, 36), 37)
	r := Analyze(w, DefaultOptions())

	assert.Equal(t, len(w), r.Metrics.N)
	assert.InDelta(t, 0.0, r.Metrics.Chi, 1e-9)
	assert.InDelta(t, 0.0, r.Metrics.G, 1e-9)
	assert.InDelta(t, 5.209, r.Metrics.Entropy, 1e-3)
	assert.InDelta(t, 1.0, r.Metrics.ChiP, 1e-9)
	assert.Equal(t, 35, r.Score)
	assert.Equal(t, LabelNormal, r.Label)
	assert.Len(t, r.Metrics.AC, DefaultMaxLag)
	assert.Len(t, r.Metrics.TopHot, TopHotLimit)
}

func TestAnalyze_SingleOutcome(t *testing.T) {
	r := Analyze(constant(7, 100), DefaultOptions())

	assert.InDelta(t, 3600.0, r.Metrics.Chi, 1e-6)
	assert.Equal(t, 0.0, r.Metrics.Entropy)
	assert.Equal(t, 0.0, r.Metrics.RunsColor)
	assert.Equal(t, 0.0, r.Metrics.Cusum)
	assert.Equal(t, 55, r.Score)
	assert.Equal(t, LabelMild, r.Label)
	assert.Empty(t, r.Flags)
	assert.Equal(t, 7, r.Breakdown.TopFrequent[0].N)
	assert.Equal(t, Streak{Value: Red, Length: 100}, r.Breakdown.ColorStreak)
}

func TestAnalyze_AlternatingColors(t *testing.T) {
	r := Analyze(repeat([]int{1, 2}, 25), DefaultOptions())

	assert.Greater(t, r.Metrics.RunsColor, 2.5)
	assert.Equal(t, 0.0, r.Metrics.RunsHighLow)
	assert.Contains(t, r.Flags, FlagColorRuns)
	assert.Equal(t, 80, r.Score)
	assert.Equal(t, LabelStrong, r.Label)
}

func TestAnalyze_Empty(t *testing.T) {
	r := Analyze(nil, DefaultOptions())

	assert.Equal(t, 0, r.Metrics.N)
	assert.Equal(t, 0.0, r.Metrics.Chi)
	assert.InDelta(t, 1.0, sum(r.Metrics.Posterior[:]), 1e-9)
	assert.Equal(t, 0.0, sum(r.Metrics.EWMA[:]))
	assert.NotNil(t, r.Flags)
	assert.Empty(t, r.Flags)
	assert.Equal(t, 0, r.Score)
	assert.Equal(t, LabelNormal, r.Label)
	assert.Equal(t, Components{}, r.Components)
	for _, h := range r.Metrics.TopHot {
		assert.Equal(t, 0, h.Count)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	w := []int{3, 17, 0, 22, 35, 8, 8, 19, 4, 31, 12, 26, 1, 9, 14, 33, 20, 6, 27, 2, 11, 36, 30, 5, 16}
	opts := Options{MaxLag: 4, Lambda: 0.2, Alpha: 0.5, HotWindow: 10, NeighborK: 1}
	assert.Equal(t, Analyze(w, opts), Analyze(w, opts))
}

func TestAnalyze_HotWindow(t *testing.T) {
	w := append(constant(0, 50), constant(36, 10)...)
	r := Analyze(w, Options{HotWindow: 10, NeighborK: 1})
	assert.Equal(t, []Hot{{N: 11, Count: 10}, {N: 13, Count: 10}, {N: 36, Count: 10}}, r.Metrics.TopHot[:3])
	assert.Equal(t, 0, r.Metrics.TopHot[3].Count)

	all := Analyze(w, Options{HotWindow: 1000, NeighborK: 1})
	assert.Equal(t, Hot{N: 0, Count: 50}, all.Metrics.TopHot[0])
}

func TestAnalyze_ZeroRadiusAndNoDecay(t *testing.T) {
	w := append(constant(0, 50), constant(36, 10)...)
	r := Analyze(w, Options{NeighborK: 0, Lambda: 0, HotWindow: 1000})

	assert.Equal(t, []Hot{{N: 0, Count: 50}, {N: 36, Count: 10}}, r.Metrics.TopHot[:2])
	assert.Equal(t, 0, r.Metrics.TopHot[2].Count)
	assert.InDelta(t, 50.0/60.0, r.Metrics.EWMA[0], 1e-12)
	assert.InDelta(t, 10.0/60.0, r.Metrics.EWMA[36], 1e-12)
}

func TestAnalyze_NegativeOptionsUseDefaults(t *testing.T) {
	w := []int{3, 17, 0, 22, 35, 8, 8, 19, 4, 31, 12, 26, 1, 9, 14, 33, 20, 6, 27, 2, 11, 36, 30, 5, 16}
	unset := Options{MaxLag: -1, Lambda: -1, Alpha: -1, HotWindow: -1, NeighborK: -1}
	assert.Equal(t, Analyze(w, DefaultOptions()), Analyze(w, unset))
}

func TestPockets(t *testing.T) {
	assert.Equal(t, Green, ColorOf(0))
	assert.Equal(t, Red, ColorOf(1))
	assert.Equal(t, Black, ColorOf(2))
	assert.Equal(t, 1, DozenOf(12))
	assert.Equal(t, 3, DozenOf(25))
	assert.Equal(t, 0, DozenOf(0))
	assert.Equal(t, 1, ColumnOf(34))
	assert.Equal(t, 3, ColumnOf(36))
	assert.Equal(t, Colors{Red: 2, Black: 1, Green: 1}, CountColors([]int{0, 1, 2, 3, 99}))

	clean, dropped := Sanitize([]int{-1, 0, 36, 37, 5})
	assert.Equal(t, []int{0, 36, 5}, clean)
	assert.Equal(t, 2, dropped)
}
