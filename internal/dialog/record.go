// Package dialog owns the conversation record, its persistence, and the
// orchestrator that sequences classification, intent arbitration,
// keypoint matching, candidate generation, and selection into one
// request/response cycle.
package dialog

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/concernlab/dialog-platform/internal/intent"
	"github.com/concernlab/dialog-platform/internal/response"
)

// Side identifies the speaker of a turn.
type Side string

const (
	SideUser   Side = "user"
	SideSystem Side = "system"
)

// ErrInvalidTurnIndex indicates a feedback or profanity mutation aimed
// at a turn that does not exist.
var ErrInvalidTurnIndex = errors.New("dialog: invalid turn index")

// UserTurn carries the user-side attributes of a turn.
type UserTurn struct {
	Intent         intent.Intent `json:"intent"`
	IsFeedback     bool          `json:"is_feedback"`
	OrigText       string        `json:"orig_text,omitempty"`
	TranslatedText string        `json:"translated_text,omitempty"`
	IsConcern      bool          `json:"is_concern"`
	IsProfanity    bool          `json:"is_profanity"`
	// RetroProfanity marks profanity attached after the fact by a
	// moderation pass rather than by the live classifier.
	RetroProfanity bool `json:"retrospective_profanity,omitempty"`
}

// SystemTurn carries the system-side attributes of a turn: the selection
// audit trail and the feedback-request flags.
type SystemTurn struct {
	BaseResponse            string        `json:"base_response"`
	CannedText              [2]string     `json:"canned_text"`
	Candidates              []string      `json:"candidates,omitempty"`
	Scores                  []float64     `json:"scores,omitempty"`
	OrigScores              []float64     `json:"orig_scores,omitempty"`
	ProcessingTime          time.Duration `json:"processing_time,omitempty"`
	IsConcern               bool          `json:"is_concern"`
	RequestFeedback         bool          `json:"request_feedback"`
	RequestThumbsFeedback   bool          `json:"request_thumbs_feedback"`
	KeypointCandidates      []string      `json:"keypoint_candidates,omitempty"`
	KeypointCandidatesQForm []string      `json:"keypoint_candidates_qform,omitempty"`
	// Skipped marks the synthetic opening message hidden from clients
	// when an opening survey was discontinued.
	Skipped bool `json:"skipped,omitempty"`
}

// Turn is one message of a conversation. Exactly one of User or System
// is set, matching Side. Turns are immutable once appended except for
// attaching feedback and retroactively flagging profanity.
type Turn struct {
	Side      Side        `json:"side"`
	Text      *string     `json:"text"`
	Keypoint  string      `json:"keypoint,omitempty"`
	Timestamp time.Time   `json:"date"`
	Feedback  *int        `json:"feedback,omitempty"`
	User      *UserTurn   `json:"user,omitempty"`
	System    *SystemTurn `json:"system,omitempty"`
}

// SurveyEntry is one asked opening-survey question with its eventual
// answer.
type SurveyEntry struct {
	QuestionIntent string     `json:"question_intent"`
	Question       string     `json:"question"`
	Choices        []string   `json:"choices,omitempty"`
	AskedAt        time.Time  `json:"asked_at"`
	Answer         *string    `json:"answer,omitempty"`
	AnsweredAt     *time.Time `json:"answered_at,omitempty"`
	Discontinued   bool       `json:"discontinued,omitempty"`
}

// Record is the full state of one conversation: the ordered turns, the
// opening-survey sub-sequence, and the optional terminal survey payload.
type Record struct {
	ID                string          `json:"id"`
	CreatedAt         time.Time       `json:"created_at"`
	Label             string          `json:"label,omitempty"`
	CampaignID        string          `json:"campaign_id,omitempty"`
	OpeningSurveyFlow string          `json:"opening_survey_flow,omitempty"`
	Platform          string          `json:"platform,omitempty"`
	LanguageCode      string          `json:"language_code,omitempty"`
	Turns             []Turn          `json:"turns"`
	OpeningSurvey     []SurveyEntry   `json:"opening_survey,omitempty"`
	Survey            json.RawMessage `json:"survey,omitempty"`
}

// UserInput describes the user turn being appended.
type UserInput struct {
	Text           *string
	Keypoint       string
	Intent         intent.Intent
	IsFeedback     bool
	OrigText       *string
	TranslatedText *string
	IsConcern      bool
	IsProfanity    bool
}

// AppendUserTurn appends the user side of an exchange and returns its
// turn index.
func (r *Record) AppendUserTurn(in UserInput) int {
	user := &UserTurn{
		Intent:      in.Intent,
		IsFeedback:  in.IsFeedback,
		IsConcern:   in.IsConcern,
		IsProfanity: in.IsProfanity,
	}
	if in.OrigText != nil {
		user.OrigText = *in.OrigText
	}
	if in.TranslatedText != nil {
		user.TranslatedText = *in.TranslatedText
	}
	r.Turns = append(r.Turns, Turn{
		Side:      SideUser,
		Text:      in.Text,
		Keypoint:  in.Keypoint,
		Timestamp: time.Now().UTC(),
		User:      user,
	})
	return len(r.Turns) - 1
}

// SystemOutput describes the system turn being appended.
type SystemOutput struct {
	Text                    string
	BaseResponse            string
	Keypoint                string
	CannedText              [2]string
	Candidates              []string
	Scores                  []float64
	OrigScores              []float64
	ProcessingTime          time.Duration
	IsConcern               bool
	RequestFeedback         bool
	RequestThumbsFeedback   bool
	KeypointCandidates      []string
	KeypointCandidatesQForm []string
}

// AppendSystemTurn appends the system side of an exchange and returns
// its turn index.
func (r *Record) AppendSystemTurn(out SystemOutput) int {
	text := out.Text
	r.Turns = append(r.Turns, Turn{
		Side:      SideSystem,
		Text:      &text,
		Keypoint:  out.Keypoint,
		Timestamp: time.Now().UTC(),
		System: &SystemTurn{
			BaseResponse:            out.BaseResponse,
			CannedText:              out.CannedText,
			Candidates:              out.Candidates,
			Scores:                  out.Scores,
			OrigScores:              out.OrigScores,
			ProcessingTime:          out.ProcessingTime,
			IsConcern:               out.IsConcern,
			RequestFeedback:         out.RequestFeedback,
			RequestThumbsFeedback:   out.RequestThumbsFeedback,
			KeypointCandidates:      out.KeypointCandidates,
			KeypointCandidatesQForm: out.KeypointCandidatesQForm,
		},
	})
	return len(r.Turns) - 1
}

// History returns the texts of all turns with text, in order. This is
// the chat history submitted to the scoring oracles.
func (r *Record) History() []string {
	history := make([]string, 0, len(r.Turns))
	for _, turn := range r.Turns {
		if turn.Text != nil {
			history = append(history, *turn.Text)
		}
	}
	return history
}

// SystemArguments reconstructs the argument of each prior system turn,
// for the selector's recency penalty.
func (r *Record) SystemArguments() []response.Argument {
	var args []response.Argument
	for _, turn := range r.Turns {
		if turn.Side != SideSystem || turn.Text == nil {
			continue
		}
		args = append(args, response.Argument{
			Text:         *turn.Text,
			Type:         response.GeneralType,
			BaseResponse: turn.System.BaseResponse,
			CannedText:   turn.System.CannedText,
		})
	}
	return args
}

// TurnViews projects the turns into the form the intent rules read.
func (r *Record) TurnViews() []intent.TurnView {
	views := make([]intent.TurnView, len(r.Turns))
	for i, turn := range r.Turns {
		view := intent.TurnView{
			IsUser:   turn.Side == SideUser,
			Keypoint: turn.Keypoint,
		}
		if turn.Text != nil {
			view.Text = *turn.Text
			view.HasText = true
		}
		if turn.User != nil {
			view.IntentLabel = turn.User.Intent.Label
			view.IsProfanity = turn.User.IsProfanity
		}
		views[i] = view
	}
	return views
}

// UpdateFeedback attaches a thumbs feedback value to the turn at index.
func (r *Record) UpdateFeedback(index, value int) error {
	if index < 0 || index >= len(r.Turns) {
		return fmt.Errorf("%w: %d", ErrInvalidTurnIndex, index)
	}
	r.Turns[index].Feedback = &value
	return nil
}

// FlagProfanity retroactively marks the user turn at index as profanity.
func (r *Record) FlagProfanity(index int) error {
	if index < 0 || index >= len(r.Turns) {
		return fmt.Errorf("%w: %d", ErrInvalidTurnIndex, index)
	}
	turn := &r.Turns[index]
	if turn.User == nil {
		return fmt.Errorf("dialog: turn %d is not a user turn", index)
	}
	turn.User.IsProfanity = true
	turn.User.RetroProfanity = true
	return nil
}

// SkipSystemOpening hides the synthetic first system message from
// clients after a discontinued opening survey.
func (r *Record) SkipSystemOpening() error {
	for i := range r.Turns {
		if r.Turns[i].Side == SideSystem {
			r.Turns[i].System.Skipped = true
			return nil
		}
	}
	return errors.New("dialog: no system turn to skip")
}

// AddSurveyQuestion records that a survey question was asked.
func (r *Record) AddSurveyQuestion(questionIntent, question string, choices []string) {
	r.OpeningSurvey = append(r.OpeningSurvey, SurveyEntry{
		QuestionIntent: questionIntent,
		Question:       question,
		Choices:        choices,
		AskedAt:        time.Now().UTC(),
	})
}

// AnswerSurveyQuestion attaches the user's answer to the pending survey
// question. When the last question is already answered the answer is
// overwritten, so a retried final answer replays the survey closing
// instead of failing.
func (r *Record) AnswerSurveyQuestion(answer string) error {
	n := len(r.OpeningSurvey)
	if n == 0 || r.OpeningSurvey[n-1].Discontinued {
		return errors.New("dialog: no survey question to answer")
	}
	entry := &r.OpeningSurvey[n-1]
	now := time.Now().UTC()
	entry.Answer = &answer
	entry.AnsweredAt = &now
	return nil
}

// AwaitingSurveyAnswer reports whether the last asked survey question is
// still unanswered.
func (r *Record) AwaitingSurveyAnswer() bool {
	n := len(r.OpeningSurvey)
	return n > 0 && r.OpeningSurvey[n-1].Answer == nil && !r.OpeningSurvey[n-1].Discontinued
}

// SurveyDiscontinued reports whether the opening survey was abandoned.
func (r *Record) SurveyDiscontinued() bool {
	n := len(r.OpeningSurvey)
	return n > 0 && r.OpeningSurvey[n-1].Discontinued
}

// DiscontinueSurvey marks the opening survey as abandoned.
func (r *Record) DiscontinueSurvey() error {
	n := len(r.OpeningSurvey)
	if n == 0 {
		return errors.New("dialog: no opening survey to discontinue")
	}
	r.OpeningSurvey[n-1].Discontinued = true
	return nil
}

// AskedSurveyQuestions returns how many survey questions were asked.
func (r *Record) AskedSurveyQuestions() int {
	return len(r.OpeningSurvey)
}

// SetSurvey stores the terminal survey payload as submitted.
func (r *Record) SetSurvey(survey json.RawMessage) {
	r.Survey = survey
}
