// Package response owns the pro-keypoint knowledge base, the
// connecting-text candidate generator, and the candidate selector.
package response

// Argument type tags. GeneralType buckets match every templated argument;
// NoCannedTextType arguments carry pre-finalized text and bypass
// prefix/suffix wrapping.
const (
	GeneralType      = "general"
	NoCannedTextType = "no_canned_text"
)

// DefaultExpression is the expression tag assigned when neither prefix
// nor suffix carries one.
const DefaultExpression = "1-Neutral"

// Argument is one response instance. BaseResponse is the canonical
// un-phrased text used as the repetition key; CannedText holds the
// [prefix, suffix] actually applied.
type Argument struct {
	Text            string
	Type            string
	BaseResponse    string
	CannedText      [2]string
	Expression      string
	LinkReplacement map[string]string
}

// NewArgument creates an argument whose base response is its own text.
func NewArgument(text, argType string) Argument {
	return Argument{Text: text, Type: argType, BaseResponse: text}
}
