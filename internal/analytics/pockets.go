package analytics

// Pocket colors.
const (
	Green = "green"
	Red   = "red"
	Black = "black"
)

// ColorOf returns the pocket color of n. Anything that is not zero or red is black.
func ColorOf(n int) string {
	switch {
	case n == 0:
		return Green
	case IsRed(n):
		return Red
	default:
		return Black
	}
}

// DozenOf returns 1, 2 or 3 for the dozen holding n, 0 for zero.
func DozenOf(n int) int {
	if n <= 0 || n >= NumPockets {
		return 0
	}
	return (n-1)/12 + 1
}

// ColumnOf returns 1, 2 or 3 for the table column holding n, 0 for zero.
func ColumnOf(n int) int {
	if n <= 0 || n >= NumPockets {
		return 0
	}
	if r := n % 3; r != 0 {
		return r
	}
	return 3
}

// Colors tallies a window by pocket color.
type Colors struct {
	Red   int `json:"red"`
	Black int `json:"black"`
	Green int `json:"green"`
}

// CountColors tallies window by color, skipping out-of-range outcomes.
func CountColors(window []int) Colors {
	var c Colors
	for _, n := range window {
		if n < 0 || n >= NumPockets {
			continue
		}
		switch ColorOf(n) {
		case Red:
			c.Red++
		case Black:
			c.Black++
		default:
			c.Green++
		}
	}
	return c
}

func colorLabels(window []int) []string {
	out := make([]string, 0, len(window))
	for _, n := range window {
		if n >= 0 && n < NumPockets {
			out = append(out, ColorOf(n))
		}
	}
	return out
}

// Streak is the longest run of one repeated value.
type Streak struct {
	Value  string `json:"value"`
	Length int    `json:"length"`
}

// LongestStreak finds the first longest run of equal labels.
func LongestStreak(labels []string) Streak {
	var best, cur Streak
	for i, l := range labels {
		if i > 0 && l == cur.Value {
			cur.Length++
		} else {
			cur = Streak{Value: l, Length: 1}
		}
		if cur.Length > best.Length {
			best = cur
		}
	}
	return best
}

// Sanitize drops outcomes outside 0..36 and reports how many were removed.
func Sanitize(window []int) ([]int, int) {
	clean := make([]int, 0, len(window))
	for _, n := range window {
		if n >= 0 && n < NumPockets {
			clean = append(clean, n)
		}
	}
	return clean, len(window) - len(clean)
}
