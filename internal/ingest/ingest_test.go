package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutcomes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []int
	}{
		{"empty", "", []int{}},
		{"comma separated", "1, 2, 36, 0", []int{1, 2, 36, 0}},
		{"newlines and tabs", "17\n\t22\n5", []int{17, 22, 5}},
		{"skips out of range", "37 12 100 7", []int{12, 7}},
		{"look-alike characters", "O I7 S 3l", []int{0, 17, 5, 31}},
		{"ignores words", "last: 14 then 9!", []int{14, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOutcomes(tt.input))
		})
	}
}

func TestParseStrict(t *testing.T) {
	got, err := ParseStrict("0 36 18")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 36, 18}, got)

	_, err = ParseStrict("4 37")
	assert.Error(t, err)
}

func TestParseStrict_NormalizesLookalikes(t *testing.T) {
	input := "O 5 l7"
	got, err := ParseStrict(input)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5, 17}, got)
	assert.Equal(t, ParseOutcomes(input), got)
}
