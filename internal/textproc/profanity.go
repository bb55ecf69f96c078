package textproc

import (
	"regexp"
	"strings"
)

// ProfanityClassifier flags user input that matches an authored lexicon.
// Terms are matched on word boundaries anywhere in the text; phrases must
// match the whole normalized input.
type ProfanityClassifier struct {
	termPattern   *regexp.Regexp
	phrasePattern *regexp.Regexp
	cleaner       *regexp.Regexp
}

// NewProfanityClassifier builds a classifier from the term and phrase
// lexicons. Empty lexicons never match.
func NewProfanityClassifier(terms, phrases []string) *ProfanityClassifier {
	c := &ProfanityClassifier{
		cleaner: regexp.MustCompile(`[^A-Za-z0-9\-]`),
	}
	if len(terms) > 0 {
		c.termPattern = regexp.MustCompile(`\b(` + joinEscaped(terms) + `)\b`)
	}
	if len(phrases) > 0 {
		c.phrasePattern = regexp.MustCompile(`^(` + joinEscaped(phrases) + `)$`)
	}
	return c
}

// Apply reports whether the text contains profanity.
func (c *ProfanityClassifier) Apply(text string) bool {
	normalized := strings.Join(strings.Fields(strings.ToLower(c.cleaner.ReplaceAllString(text, " "))), " ")
	if c.phrasePattern != nil && c.phrasePattern.MatchString(normalized) {
		return true
	}
	return c.termPattern != nil && c.termPattern.MatchString(normalized)
}

func joinEscaped(items []string) string {
	escaped := make([]string, 0, len(items))
	for _, item := range items {
		escaped = append(escaped, regexp.QuoteMeta(strings.ToLower(strings.TrimSpace(item))))
	}
	return strings.Join(escaped, "|")
}
