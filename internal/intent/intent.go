package intent

// Source records which stage of the arbiter produced the intent.
type Source string

const (
	SourceRule       Source = "rule"
	SourceClassifier Source = "classifier"
	SourceSurvey     Source = "survey"
	SourceFeedback   Source = "feedback"
)

// Intent is the resolved intent of a single turn. OriginalLabel keeps the
// label as produced before normalization so the rewrite stays auditable.
type Intent struct {
	Label         Label   `json:"label"`
	Score         float64 `json:"score"`
	OriginalLabel Label   `json:"original_label"`
	Source        Source  `json:"source,omitempty"`
}

// New creates an intent with OriginalLabel mirroring Label.
func New(label Label, score float64, source Source) Intent {
	return Intent{
		Label:         label,
		Score:         score,
		OriginalLabel: label,
		Source:        source,
	}
}

// ForSurvey creates the fixed-score intent used by the opening-survey
// flow for its closing comment and post-survey intro.
func ForSurvey(label Label) Intent {
	return New(label, 1, SourceSurvey)
}

// ForFeedback creates the fixed-score intent assigned to a feedback-menu
// selection.
func ForFeedback(label Label) Intent {
	return New(label, 1, SourceFeedback)
}

// IsNoResponse reports whether the intent belongs to the "no substantive
// answer" family, for which asking the user to rate keypoint relevance is
// pointless.
func IsNoResponse(it Intent) bool {
	return it.Label == LabelDefault || it.Label == LabelDefaultWithFeedback
}

// SuppressesFeedback reports whether the intent belongs to the fixed set
// of pleasantries for which no feedback of any kind is requested.
func SuppressesFeedback(it Intent) bool {
	switch it.Label {
	case LabelGreeting, LabelFarewell, LabelPositiveReaction, LabelNegativeReaction:
		return true
	}
	return false
}
