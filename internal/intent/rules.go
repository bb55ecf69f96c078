package intent

import (
	"regexp"
	"strings"
)

// TurnView is the minimal projection of a dialog turn the context rules
// need. The dialog package converts its turns into views before calling
// the arbiter, which keeps this package free of a storage dependency.
type TurnView struct {
	IsUser      bool
	Text        string
	HasText     bool
	Keypoint    string
	IntentLabel Label
	IsProfanity bool
}

// Signals carries the per-turn evidence the rules weigh alongside the
// history.
type Signals struct {
	// Keypoint is the confidently matched concern keypoint, empty when
	// there is none.
	Keypoint string
	// NewIntent is set on feedback turns to the label of the selected
	// feedback-menu option.
	NewIntent Label
	// IsConcern is nil until the concern classifier has run this turn.
	IsConcern *bool
	// IsProfanity mirrors the profanity classifier outcome.
	IsProfanity bool
}

// Rule is one deterministic context rule. Rules are evaluated in fixed
// order, first match wins, before the external classifier is consulted.
type Rule struct {
	Name    Label
	Applies func(history []TurnView, sig Signals) bool
}

var whatElsePattern = regexp.MustCompile(`(?i)what (else|other)[\w\d\s]*\?$`)

// noneOfKPsLabel matches both the plain and the two-in-a-row variant.
func noneOfKPsLabel(label Label) bool {
	return strings.Contains(string(label), string(LabelFeedbackNoneOfKPs))
}

// ContextRules returns the rules in their fixed evaluation order.
func ContextRules() []Rule {
	return []Rule{
		{
			Name: LabelProfanity,
			Applies: func(_ []TurnView, sig Signals) bool {
				return sig.IsProfanity
			},
		},
		{
			Name: LabelSameKPTwiceInARow,
			Applies: func(history []TurnView, sig Signals) bool {
				if sig.Keypoint == "" {
					return false
				}
				n := len(history)
				// same keypoint back-to-back
				if n >= 2 && history[n-2].Keypoint == sig.Keypoint {
					return true
				}
				// same keypoint with a none-of-the-above in the middle
				if n >= 4 && noneOfKPsLabel(history[n-2].IntentLabel) &&
					history[n-4].Keypoint == sig.Keypoint {
					return true
				}
				return false
			},
		},
		{
			Name: LabelTwoNoneOfKPsInARow,
			Applies: func(history []TurnView, sig Signals) bool {
				n := len(history)
				return sig.NewIntent == LabelFeedbackNoneOfKPs && n >= 4 &&
					history[n-4].IntentLabel == LabelFeedbackNoneOfKPs
			},
		},
		{
			Name: LabelNoOtherConcern,
			Applies: func(history []TurnView, sig Signals) bool {
				if sig.IsConcern == nil || *sig.IsConcern {
					return false
				}
				n := len(history)
				return n >= 1 && history[n-1].HasText &&
					whatElsePattern.MatchString(history[n-1].Text)
			},
		},
	}
}

// applyRules runs the rules in order and returns the first firing rule's
// intent, or false when none fires.
func applyRules(rules []Rule, history []TurnView, sig Signals) (Intent, bool) {
	for _, rule := range rules {
		if rule.Applies(history, sig) {
			return New(rule.Name, 1, SourceRule), true
		}
	}
	return Intent{}, false
}
