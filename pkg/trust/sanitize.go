package trust

import "regexp"

// compliancePlaceholder replaces forbidden phrases in outbound text.
const compliancePlaceholder = "[removed-for-compliance]"

var forbiddenPhrases = []string{
	"you should buy",
	"guaranteed profit",
	"this stock will go up",
	"best stock to buy now",
	"sure shot",
}

var forbiddenPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(forbiddenPhrases))
	for i, phrase := range forbiddenPhrases {
		patterns[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase))
	}
	return patterns
}()

// Sanitize rewrites every forbidden phrase, case-insensitively, with a
// neutral placeholder. It runs on every explanation string the engine emits
// and never fails.
func Sanitize(text string) string {
	for _, pattern := range forbiddenPatterns {
		text = pattern.ReplaceAllString(text, compliancePlaceholder)
	}
	return text
}
