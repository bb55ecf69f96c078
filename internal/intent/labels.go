// Package intent implements per-turn intent resolution: a fixed-order
// set of context rules over the conversation history, a fallback external
// classifier, and the final label normalization that reconciles the label
// with the keypoint matching outcome.
package intent

import (
	"fmt"
	"strings"
)

// Label is one value of the closed intent vocabulary shared between the
// arbiter and the connecting-text engine. Labels are canonically
// uppercase; ParseLabel accepts any case.
type Label string

const (
	LabelIntroDiscussion            Label = "INTRO_DISCUSSION"
	LabelFarewell                   Label = "FAREWELL"
	LabelConcern                    Label = "CONCERN"
	LabelDefault                    Label = "DEFAULT"
	LabelNegativeReaction           Label = "NEGATIVE_REACTION"
	LabelPositiveReaction           Label = "POSITIVE_REACTION"
	LabelGreeting                   Label = "GREETING"
	LabelQuery                      Label = "QUERY"
	LabelFeedbackNewKP              Label = "FEEDBACK_NEW_KP"
	LabelFeedbackNoneOfKPs          Label = "FEEDBACK_NONE_OF_KPS"
	LabelFeedbackNoConcern          Label = "FEEDBACK_NO_CONCERN"
	LabelDefaultWithFeedback        Label = "DEFAULT_WITH_FEEDBACK"
	LabelSameKPAfterNoneOfTheAbove  Label = "SAME_KP_AFTER_NONE_OF_THE_ABOVE"
	LabelTwoNoneOfKPsInARow         Label = "FEEDBACK_NONE_OF_KPS_TWO_IN_A_ROW"
	LabelNoOtherConcern             Label = "NO_OTHER_CONCERN"
	LabelSameKPTwiceInARow          Label = "SAME_KP_TWICE_IN_A_ROW"
	LabelKP                         Label = "KP"
	LabelQuestion                   Label = "QUESTION"
	LabelAgreement                  Label = "AGREEMENT"
	LabelCloseDiscussion            Label = "CLOSE_DISCUSSION"
	LabelChangeSubject              Label = "CHANGE_SUBJECT"
	LabelDisagreement               Label = "DISAGREEMENT"
	LabelProfanity                  Label = "PROFANITY"
	LabelSurveyOriginQuestion       Label = "SURVEY_ORIGIN_QUESTION"
	LabelSurveyClosing              Label = "SURVEY_CLOSING"
	LabelIntroDiscussionAfterSurvey Label = "INTRO_DISCUSSION_AFTER_SURVEY"
)

var allLabels = map[Label]struct{}{
	LabelIntroDiscussion:            {},
	LabelFarewell:                   {},
	LabelConcern:                    {},
	LabelDefault:                    {},
	LabelNegativeReaction:           {},
	LabelPositiveReaction:           {},
	LabelGreeting:                   {},
	LabelQuery:                      {},
	LabelFeedbackNewKP:              {},
	LabelFeedbackNoneOfKPs:          {},
	LabelFeedbackNoConcern:          {},
	LabelDefaultWithFeedback:        {},
	LabelSameKPAfterNoneOfTheAbove:  {},
	LabelTwoNoneOfKPsInARow:         {},
	LabelNoOtherConcern:             {},
	LabelSameKPTwiceInARow:          {},
	LabelKP:                         {},
	LabelQuestion:                   {},
	LabelAgreement:                  {},
	LabelCloseDiscussion:            {},
	LabelChangeSubject:              {},
	LabelDisagreement:               {},
	LabelProfanity:                  {},
	LabelSurveyOriginQuestion:       {},
	LabelSurveyClosing:              {},
	LabelIntroDiscussionAfterSurvey: {},
}

// ParseLabel normalizes a label token to its canonical form. Unknown
// tokens are an error: the vocabulary is closed.
func ParseLabel(s string) (Label, error) {
	label := Label(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := allLabels[label]; !ok {
		return "", fmt.Errorf("intent: unknown label %q", s)
	}
	return label, nil
}

// classifierLabels are the labels the external classifier may emit.
var classifierLabels = []Label{
	LabelGreeting, LabelFarewell, LabelNegativeReaction,
	LabelPositiveReaction, LabelConcern, LabelQuery, LabelDefault,
}

// PipelineLabels lists every label the turn pipeline can produce on its
// own: the conversation opening, the context rules, the classifier
// vocabulary, and the advisory normalization target. The connecting-text
// library must cover all of them, or a reachable turn has no response.
func PipelineLabels() []Label {
	labels := []Label{LabelIntroDiscussion, LabelDefaultWithFeedback}
	labels = append(labels, classifierLabels...)
	for _, rule := range ContextRules() {
		labels = append(labels, rule.Name)
	}
	return labels
}
