// Package ingest turns pasted or transcribed text into roulette outcomes.
package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// whole-word integers in 0..36
	outcomeRe = regexp.MustCompile(`\b([0-9]|[1-2][0-9]|3[0-6])\b`)
	numberRe  = regexp.MustCompile(`\b[0-9]+\b`)

	lookalikes = strings.NewReplacer("O", "0", "o", "0", "I", "1", "l", "1", "S", "5")
)

// Normalize replaces characters commonly confused with digits in transcribed text.
func Normalize(text string) string {
	return lookalikes.Replace(text)
}

// ParseOutcomes extracts every whole-word outcome 0..36 from text, in order.
// Larger numbers and other tokens are skipped.
func ParseOutcomes(text string) []int {
	matches := outcomeRe.FindAllString(Normalize(text), -1)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// ParseStrict is ParseOutcomes that fails on any number outside 0..36.
func ParseStrict(text string) ([]int, error) {
	tokens := numberRe.FindAllString(Normalize(text), -1)
	out := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		n, err := strconv.Atoi(tok)
		if err != nil || n > 36 {
			return nil, fmt.Errorf("invalid outcome %q: must be between 0 and 36", tok)
		}
		out = append(out, n)
	}
	return out, nil
}
