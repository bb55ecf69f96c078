package intent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrUnknownFeedbackOption indicates a feedback selection that matches no
// configured feedback-menu option. This is a client input error.
var ErrUnknownFeedbackOption = errors.New("intent: feedback selection does not match any configured option")

// Classifier is the external intent classification oracle.
type Classifier interface {
	Classify(ctx context.Context, text string, disableCache bool) (labels []string, scores []float64, err error)
}

// FeedbackOption is one entry of the configured feedback menu.
type FeedbackOption struct {
	// Pattern is matched (anchored at the start) against the raw
	// selection text.
	Pattern string
	Label   Label
	// SelectsKeypoint marks the option that stands for picking one of
	// the offered keypoint candidates.
	SelectsKeypoint bool
	// Candidate options are appended to the keypoint candidate list
	// offered to the user.
	Candidate bool
	// LocationSpecific options are offered only when the session carries
	// a campaign id.
	LocationSpecific bool
}

// Detector arbitrates between the context rules and the external
// classifier, and owns the final label normalization.
type Detector struct {
	classifier Classifier
	confidence float64
	advisory   bool
	rules      []Rule
}

// NewDetector creates an intent detector. The confidence threshold gates
// acceptance of the external classifier's top label.
func NewDetector(classifier Classifier, confidence float64, advisory bool) *Detector {
	return &Detector{
		classifier: classifier,
		confidence: confidence,
		advisory:   advisory,
		rules:      ContextRules(),
	}
}

// Detect resolves the intent of a free-text turn. hasText is false on
// conversation start, where no user text exists at all. The returned
// intent has already been normalized against the matched keypoint.
func (d *Detector) Detect(ctx context.Context, text string, hasText bool, history []TurnView, sig Signals, disableCache bool) (Intent, error) {
	var it Intent
	resolved := false

	if !hasText {
		it = New(LabelIntroDiscussion, 1, "")
		resolved = true
	}

	if !resolved {
		if ruleIntent, fired := applyRules(d.rules, history, sig); fired {
			it = ruleIntent
			resolved = true
		}
	}

	if !resolved {
		classified, err := d.classify(ctx, text, disableCache)
		if err != nil {
			return Intent{}, err
		}
		it = classified
	}

	return d.ModifyLabel(it, sig.Keypoint), nil
}

func (d *Detector) classify(ctx context.Context, text string, disableCache bool) (Intent, error) {
	labels, scores, err := d.classifier.Classify(ctx, text, disableCache)
	if err != nil {
		return Intent{}, err
	}
	if scores[0] > d.confidence {
		label, err := ParseLabel(labels[0])
		if err != nil {
			return Intent{}, fmt.Errorf("intent: classifier returned unknown label: %w", err)
		}
		return New(label, scores[0], SourceClassifier), nil
	}
	return New(LabelDefault, 1, SourceClassifier), nil
}

// DetectFeedback resolves the intent of a feedback-menu selection. The
// raw selection text is matched against the configured options; the
// context rules are re-applied with the selected option's label so that
// streak rules keep firing across feedback turns. The second return value
// reports whether the selected option stands for a keypoint choice.
func (d *Detector) DetectFeedback(options []FeedbackOption, rawText string, history []TurnView, kpForQuestion func(string) (string, bool)) (Intent, bool, error) {
	for _, option := range options {
		matched, err := regexp.MatchString(`^(?:`+option.Pattern+`)`, rawText)
		if err != nil {
			return Intent{}, false, fmt.Errorf("intent: invalid feedback option pattern %q: %w", option.Pattern, err)
		}
		if !matched {
			continue
		}

		sig := Signals{NewIntent: option.Label}
		if option.Label == LabelFeedbackNewKP && kpForQuestion != nil {
			if kp, ok := kpForQuestion(rawText); ok {
				sig.Keypoint = kp
			}
		}
		// A firing context rule takes precedence over the menu label.
		if ruleIntent, fired := applyRules(d.rules, history, sig); fired {
			return ruleIntent, option.SelectsKeypoint, nil
		}
		return ForFeedback(option.Label), option.SelectsKeypoint, nil
	}
	return Intent{}, false, fmt.Errorf("%w: %q", ErrUnknownFeedbackOption, rawText)
}

// ModifyLabel reconciles the intent label with the keypoint matching
// outcome. It runs exactly once per free-text turn, after rule/classifier
// resolution:
//   - a matched keypoint upgrades a generic default to a query;
//   - a missing keypoint demotes content-expecting labels to the default
//     family (with-feedback variant when advisory mode is active).
func (d *Detector) ModifyLabel(it Intent, keypoint string) Intent {
	if keypoint != "" && it.Label == LabelDefault {
		it.Label = LabelQuery
	} else if keypoint == "" && (it.Label == LabelConcern || it.Label == LabelQuery || it.Label == LabelDefault) {
		if d.advisory {
			it.Label = LabelDefaultWithFeedback
		} else {
			it.Label = LabelDefault
		}
	}
	return it
}
