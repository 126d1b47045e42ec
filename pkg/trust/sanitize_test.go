package trust

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeReplacesForbiddenPhrases(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"exact phrase",
			"analysts say you should buy immediately",
			"analysts say [removed-for-compliance] immediately",
		},
		{
			"mixed case",
			"GUARANTEED Profit awaits patient investors",
			"[removed-for-compliance] awaits patient investors",
		},
		{
			"mid sentence",
			"everyone claims this stock will go up next week",
			"everyone claims [removed-for-compliance] next week",
		},
		{
			"multiple phrases",
			"sure shot pick, best stock to buy now",
			"[removed-for-compliance] pick, [removed-for-compliance]",
		},
		{
			"clean text untouched",
			"News sentiment contributes 61.5 with confidence 70.0.",
			"News sentiment contributes 61.5 with confidence 70.0.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitizeLeavesNoForbiddenResidue(t *testing.T) {
	input := "You Should BUY this, a Guaranteed PROFIT and a sure SHOT winner"
	got := strings.ToLower(Sanitize(input))
	for _, phrase := range forbiddenPhrases {
		assert.NotContains(t, got, phrase)
	}
}
