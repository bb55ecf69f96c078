package textproc

import (
	"regexp"
	"strings"
)

// corefMaxWords bounds the utterance length for which pronoun rewriting
// is attempted. Longer inputs carry enough context on their own.
const corefMaxWords = 5

var (
	itsPattern = regexp.MustCompile(`\bit's\b`)
	itPattern  = regexp.MustCompile(`\bit\b`)
)

// CorefResolver rewrites bare "it" references in short utterances to the
// conversation theme, so that downstream matching sees a self-contained
// sentence.
type CorefResolver struct {
	theme   string
	keyword string
}

// NewCorefResolver creates a resolver for the given theme. The keyword is
// the theme's head word; utterances that already mention it are left
// untouched.
func NewCorefResolver(theme, keyword string) *CorefResolver {
	return &CorefResolver{theme: theme, keyword: keyword}
}

// Apply resolves pronoun references in the text.
func (r *CorefResolver) Apply(text string) string {
	if len(CleanWords(text)) > corefMaxWords {
		return text
	}
	if r.keyword != "" && strings.Contains(text, r.keyword) {
		return text
	}
	text = itsPattern.ReplaceAllString(text, r.theme+" is")
	text = itPattern.ReplaceAllString(text, r.theme)
	return text
}
