package textproc

import "strings"

// Words that commonly appear in chit-chat replies and carry no concern
// content on their own.
const commonNoConcernWords = "agree hi bye disagree support concern " +
	"good nice please ok yes no idea thank " +
	"thanks never mind nothing forget move on " +
	"understand clear clarify not"

// ConcernClassifier decides whether a user utterance expresses a concern
// worth matching against the keypoint knowledge base.
type ConcernClassifier struct {
	ignoreWords []string
	threshold   int
}

// NewConcernClassifier creates a classifier with the default ignore list:
// any content word remaining after cleansing implies a concern.
func NewConcernClassifier() *ConcernClassifier {
	return &ConcernClassifier{
		ignoreWords: CleanWords(commonNoConcernWords),
		threshold:   0,
	}
}

// Apply reports whether the utterance expresses a concern.
func (c *ConcernClassifier) Apply(text string) bool {
	cleaned := CleanText(text, c.ignoreWords)
	return len(strings.Fields(cleaned)) > c.threshold
}
