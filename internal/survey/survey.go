// Package survey implements the opening-survey flow: a configured
// question sequence asked before normal dialog starts.
package survey

import (
	"fmt"

	"github.com/concernlab/dialog-platform/internal/content"
	"github.com/concernlab/dialog-platform/internal/intent"
)

// Question is one survey question with its question intent.
type Question struct {
	Intent   string
	Question string
	Choices  []string
}

// Engine walks a session through its configured question flow. It is
// stateless; progress lives on the conversation record as the number of
// survey entries already created.
type Engine struct {
	enabled       bool
	closingIntent intent.Label
	introIntent   intent.Label
	defaultFlow   string
	flows         map[string][]Question
}

// NewEngine builds the engine from the authored survey configuration.
// A disabled survey yields an engine that reports no questions.
func NewEngine(cfg content.SurveyConfig) (*Engine, error) {
	e := &Engine{enabled: cfg.Enabled, defaultFlow: cfg.DefaultFlow}
	if !cfg.Enabled {
		return e, nil
	}

	closing, err := intent.ParseLabel(cfg.ClosingIntent)
	if err != nil {
		return nil, fmt.Errorf("survey: closing intent: %w", err)
	}
	intro, err := intent.ParseLabel(cfg.IntroIntent)
	if err != nil {
		return nil, fmt.Errorf("survey: intro intent: %w", err)
	}
	e.closingIntent = closing
	e.introIntent = intro

	e.flows = make(map[string][]Question, len(cfg.Flows))
	for flow, questionIDs := range cfg.Flows {
		questions := make([]Question, len(questionIDs))
		for i, id := range questionIDs {
			authored, ok := cfg.Questions[id]
			if !ok {
				return nil, fmt.Errorf("survey: flow %q references unknown question %q", flow, id)
			}
			questions[i] = Question{Intent: id, Question: authored.Question, Choices: authored.Choices}
		}
		e.flows[flow] = questions
	}
	if _, ok := e.flows[e.defaultFlow]; !ok {
		return nil, fmt.Errorf("survey: default flow %q is not configured", e.defaultFlow)
	}
	return e, nil
}

// Enabled reports whether the opening survey runs at all.
func (e *Engine) Enabled() bool {
	return e.enabled
}

// DefaultFlow returns the flow used when a new session names none.
func (e *Engine) DefaultFlow() string {
	return e.defaultFlow
}

// HasFlow reports whether the named flow is configured.
func (e *Engine) HasFlow(flow string) bool {
	_, ok := e.flows[flow]
	return ok
}

// NextQuestion returns the question at position asked within the flow,
// or false when the flow is exhausted or unknown.
func (e *Engine) NextQuestion(flow string, asked int) (Question, bool) {
	questions, ok := e.flows[flow]
	if !ok || asked >= len(questions) {
		return Question{}, false
	}
	return questions[asked], true
}

// HasMoreQuestions reports whether the flow still has questions after
// asked have been posed.
func (e *Engine) HasMoreQuestions(flow string, asked int) bool {
	questions, ok := e.flows[flow]
	return ok && asked < len(questions)
}

// ClosingIntent is the connecting-text intent of the survey's closing
// remark.
func (e *Engine) ClosingIntent() intent.Label {
	return e.closingIntent
}

// IntroIntent is the forced intent of the first normal-dialog turn after
// the survey completes.
func (e *Engine) IntroIntent() intent.Label {
	return e.introIntent
}
