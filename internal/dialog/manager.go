package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/concernlab/dialog-platform/internal/content"
	"github.com/concernlab/dialog-platform/internal/intent"
	"github.com/concernlab/dialog-platform/internal/keypoint"
	"github.com/concernlab/dialog-platform/internal/response"
	"github.com/concernlab/dialog-platform/internal/survey"
	"github.com/concernlab/dialog-platform/internal/textproc"
	"github.com/concernlab/dialog-platform/internal/translate"
	"github.com/concernlab/dialog-platform/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultPersona = "general"

// Observer receives per-turn measurements. Implementations must be
// cheap; they run on the request path.
type Observer interface {
	ObserveTurn(languageCode string, label intent.Label, duration time.Duration)
}

// PersonaFunc picks the speaking style used to select among phrasing
// templates. The default detector always answers in the general voice.
type PersonaFunc func(text string, history []string) string

// Language bundles the per-language runtime: authored content, the
// opening-survey engine, and the keypoint matcher over that language's
// index.
type Language struct {
	Pack    *content.Pack
	Survey  *survey.Engine
	Matcher *keypoint.Matcher
}

// Options wires a Manager.
type Options struct {
	Store      Store
	Archive    *Archive
	Translator *translate.Translator
	Detector   *intent.Detector
	Selector   *response.Selector
	Profanity  *textproc.ProfanityClassifier
	Concern    *textproc.ConcernClassifier
	Coref      *textproc.CorefResolver

	Languages       map[string]*Language
	DefaultLanguage string

	AdvisoryEnabled    bool
	AdvisoryCandidates int

	Persona  PersonaFunc
	Observer Observer
	Logger   *logging.Logger
}

// Manager is the turn orchestrator. It sequences translation,
// coreference resolution, classification, keypoint matching, intent
// arbitration, candidate generation, and selection into one
// request/response cycle, and owns all record mutations.
type Manager struct {
	store      Store
	archive    *Archive
	translator *translate.Translator
	detector   *intent.Detector
	selector   *response.Selector
	profanity  *textproc.ProfanityClassifier
	concern    *textproc.ConcernClassifier
	coref      *textproc.CorefResolver

	languages       map[string]*Language
	defaultLanguage string

	advisoryEnabled    bool
	advisoryCandidates int

	persona  PersonaFunc
	observer Observer
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewManager creates the orchestrator.
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		panic("dialog: store cannot be nil")
	}
	if opts.Detector == nil || opts.Selector == nil {
		panic("dialog: detector and selector cannot be nil")
	}
	if opts.Profanity == nil || opts.Concern == nil || opts.Coref == nil {
		panic("dialog: text classifiers cannot be nil")
	}
	if len(opts.Languages) == 0 {
		return nil, fmt.Errorf("dialog: no languages configured")
	}
	if _, ok := opts.Languages[opts.DefaultLanguage]; !ok {
		return nil, fmt.Errorf("dialog: default language %q is not configured", opts.DefaultLanguage)
	}
	persona := opts.Persona
	if persona == nil {
		persona = func(string, []string) string { return defaultPersona }
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	candidates := opts.AdvisoryCandidates
	if candidates <= 0 {
		candidates = 3
	}
	return &Manager{
		store:              opts.Store,
		archive:            opts.Archive,
		translator:         opts.Translator,
		detector:           opts.Detector,
		selector:           opts.Selector,
		profanity:          opts.Profanity,
		concern:            opts.Concern,
		coref:              opts.Coref,
		languages:          opts.Languages,
		defaultLanguage:    opts.DefaultLanguage,
		advisoryEnabled:    opts.AdvisoryEnabled,
		advisoryCandidates: candidates,
		persona:            persona,
		observer:           opts.Observer,
		logger:             logger,
		tracer:             otel.Tracer("dialog.manager"),
	}, nil
}

// TurnResponse is the envelope returned for every dialog operation.
type TurnResponse struct {
	Text            string         `json:"text"`
	TextTranslated  string         `json:"text_translated"`
	ConKP           string         `json:"con_kp"`
	ProKP           string         `json:"pro_kp"`
	ProArg          string         `json:"pro_arg"`
	Response        string         `json:"response"`
	Intent          *intent.Intent `json:"intent,omitempty"`
	MessageID       int            `json:"message_id"`
	SessionID       string         `json:"session_id"`
	RequestFeedback bool           `json:"request_feedback"`
	ConKPs          []string       `json:"con_kps,omitempty"`
	ConKPScores     []float64      `json:"con_kp_scores,omitempty"`
	ConKPCandidates []string       `json:"con_kp_candidates,omitempty"`
	SkipKPFeedback  bool           `json:"skip_kp_feedback"`
	Expression      string         `json:"expression"`
	IsConcern       bool           `json:"is_concern"`
	IsProfanity     bool           `json:"is_profanity"`

	// Opening-survey branch.
	SurveyQuestion string   `json:"question,omitempty"`
	SurveyChoices  []string `json:"choices,omitempty"`
	OpeningSurvey  bool     `json:"opening_survey,omitempty"`
	SurveyResponse string   `json:"survey_response,omitempty"`

	// New-session extras.
	UITexts           map[string]string `json:"ui_texts,omitempty"`
	AdvisoryMode      *bool             `json:"advisory_mode,omitempty"`
	LanguageDirection string            `json:"language_direction,omitempty"`
}

// NewSessionRequest describes session creation.
type NewSessionRequest struct {
	Label             string
	CampaignID        string
	OpeningSurveyFlow string
	Platform          string
	LanguageCode      string
}

// NewSession creates a conversation and produces its first system
// message (or the first survey question).
func (m *Manager) NewSession(ctx context.Context, req NewSessionRequest) (*TurnResponse, error) {
	languageCode := req.LanguageCode
	if languageCode == "" {
		languageCode = m.defaultLanguage
	}
	rt, ok := m.languages[languageCode]
	if !ok {
		return nil, fmt.Errorf("%w: unknown language %q", ErrBadInput, languageCode)
	}

	flow := req.OpeningSurveyFlow
	if flow == "" {
		flow = rt.Survey.DefaultFlow()
	}
	if rt.Survey.Enabled() && !rt.Survey.HasFlow(flow) {
		return nil, fmt.Errorf("%w: invalid opening survey flow %q", ErrBadInput, flow)
	}

	resp, err := m.processUserText(ctx, textParams{
		create: &NewSessionRequest{
			Label:             req.Label,
			CampaignID:        req.CampaignID,
			OpeningSurveyFlow: flow,
			Platform:          req.Platform,
			LanguageCode:      languageCode,
		},
	})
	if err != nil {
		return nil, err
	}

	advisory := m.advisoryEnabled
	resp.UITexts = rt.Pack.UITexts
	resp.AdvisoryMode = &advisory
	resp.LanguageDirection = rt.Pack.Direction
	return resp, nil
}

// SubmitText handles one user message: free text, a feedback-menu
// selection, or an opening-survey answer.
func (m *Manager) SubmitText(ctx context.Context, sessionID, text string, isFeedback, isAnswer, disableCache bool) (*TurnResponse, error) {
	return m.processUserText(ctx, textParams{
		sessionID:    sessionID,
		rawText:      &text,
		isFeedback:   isFeedback,
		isAnswer:     isAnswer,
		disableCache: disableCache,
	})
}

// SubmitFeedback attaches a thumbs rating to an earlier turn.
func (m *Manager) SubmitFeedback(ctx context.Context, sessionID string, turnIndex, value int) error {
	record, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := record.UpdateFeedback(turnIndex, value); err != nil {
		return err
	}
	return m.store.Commit(ctx, record)
}

// SubmitSurvey stores the terminal survey payload on the record.
func (m *Manager) SubmitSurvey(ctx context.Context, sessionID string, payload json.RawMessage) error {
	record, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	record.SetSurvey(payload)
	return m.store.Commit(ctx, record)
}

// FlagProfanity retroactively marks a user turn as profanity, for
// moderation passes over stored conversations.
func (m *Manager) FlagProfanity(ctx context.Context, sessionID string, turnIndex int) error {
	record, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := record.FlagProfanity(turnIndex); err != nil {
		return err
	}
	return m.store.Commit(ctx, record)
}

type textParams struct {
	sessionID    string
	rawText      *string
	isFeedback   bool
	isAnswer     bool
	disableCache bool
	// forcedIntent bypasses intent arbitration, used for the post-survey
	// intro turn.
	forcedIntent *intent.Intent
	// create is set when a new record must be made.
	create *NewSessionRequest
}

func (m *Manager) processUserText(ctx context.Context, p textParams) (*TurnResponse, error) {
	start := time.Now()

	ctx, span := m.tracer.Start(ctx, "dialog.process_turn",
		trace.WithAttributes(attribute.Bool("dialog.is_feedback", p.isFeedback)))
	defer span.End()

	record, err := m.loadOrCreate(ctx, p)
	if err != nil {
		return nil, err
	}

	languageCode := record.LanguageCode
	if languageCode == "" {
		languageCode = m.defaultLanguage
	}
	rt, ok := m.languages[languageCode]
	if !ok {
		return nil, fmt.Errorf("%w: unknown language %q", ErrBadInput, languageCode)
	}
	pack := rt.Pack

	// Opening-survey gate.
	if rt.Survey.Enabled() && !record.SurveyDiscontinued() {
		if record.AwaitingSurveyAnswer() && !p.isAnswer {
			// The user ignored the survey question and sent a real
			// concern; abandon the survey and handle the input normally.
			if err := m.discontinueSurvey(ctx, record); err != nil {
				return nil, err
			}
			record, err = m.store.Get(ctx, record.ID)
			if err != nil {
				return nil, err
			}
		} else if rt.Survey.HasMoreQuestions(record.OpeningSurveyFlow, record.AskedSurveyQuestions()) || p.isAnswer {
			return m.processOpeningSurvey(ctx, record, rt, p.rawText)
		}
	}

	history := record.History()
	systemArgs := record.SystemArguments()

	var (
		conKP           string
		conKPs          []string
		conKPScores     []float64
		conKPCandidates []string
		isConcern       bool
		isProfanity     bool
		requestFeedback bool
		skipKPFeedback  bool
		resolved        *intent.Intent
	)
	if p.forcedIntent != nil {
		resolved = p.forcedIntent
	}

	var translated, userArg *string
	if p.rawText != nil {
		text := *p.rawText
		if m.translator != nil && m.translator.Enabled(languageCode) && !p.isFeedback {
			text, err = m.translator.Translate(ctx, text, languageCode)
			if err != nil {
				return nil, err
			}
		}
		translated = &text
		withCoref := m.coref.Apply(text)
		userArg = &withCoref
	}

	if p.isFeedback {
		it, selectsKP, ferr := m.detector.DetectFeedback(pack.FeedbackOptions, *p.rawText, record.TurnViews(), pack.QForms.Keypoint)
		if ferr != nil {
			return nil, ferr
		}
		resolved = &it
		if selectsKP {
			kp, found := pack.QForms.Keypoint(*p.rawText)
			if !found {
				return nil, fmt.Errorf("%w: unknown keypoint selection %q", ErrBadInput, *p.rawText)
			}
			conKP = kp
			isConcern = true
			requestFeedback = true
		}
	} else {
		if userArg != nil {
			history = append(history, *userArg)
			isProfanity = m.profanity.Apply(*userArg)

			if !isProfanity {
				isConcern = m.concern.Apply(*userArg)
				if isConcern {
					if m.advisoryEnabled {
						requestFeedback = true

						conKPs, conKPScores, err = rt.Matcher.TopK(ctx, *userArg, m.advisoryCandidates,
							p.disableCache, pack.Knowledge.ConcernKeypointSet())
						if err != nil {
							return nil, err
						}
						if len(conKPScores) > 0 && rt.Matcher.IsConfident(conKPScores[0]) {
							conKP = conKPs[0]
						}

						it, derr := m.detector.Detect(ctx, *userArg, true, record.TurnViews(),
							intent.Signals{Keypoint: conKP, IsConcern: &isConcern, IsProfanity: isProfanity},
							p.disableCache)
						if derr != nil {
							return nil, derr
						}
						resolved = &it

						if conKP == "" {
							// With no confident match there is no point
							// asking whether the match was on target.
							if intent.IsNoResponse(it) {
								skipKPFeedback = true
							}
							if intent.SuppressesFeedback(it) {
								requestFeedback = false
							}
						}

						conKPCandidates, err = pack.QForms.Questions(conKPs)
						if err != nil {
							return nil, err
						}
						for _, option := range pack.FeedbackMenu {
							if option.Candidate && (!option.LocationSpecific || record.CampaignID != "") {
								conKPCandidates = append(conKPCandidates, option.Pattern)
							}
						}
					} else {
						conKPs, conKPScores, err = rt.Matcher.TopK(ctx, *userArg, 1, p.disableCache, nil)
						if err != nil {
							return nil, err
						}
						if len(conKPScores) > 0 && rt.Matcher.IsConfident(conKPScores[0]) {
							conKP = conKPs[0]
						}
					}
				}
			}
		}

		if resolved == nil {
			var text string
			if userArg != nil {
				text = *userArg
			}
			it, derr := m.detector.Detect(ctx, text, userArg != nil, record.TurnViews(),
				intent.Signals{Keypoint: conKP, IsConcern: &isConcern, IsProfanity: isProfanity},
				p.disableCache)
			if derr != nil {
				return nil, derr
			}
			resolved = &it
		}
	}

	proKP := pack.Knowledge.ResponseKeypoint(conKP)

	var personaText string
	if userArg != nil {
		personaText = *userArg
	}
	persona := m.persona(personaText, history)

	record.AppendUserTurn(UserInput{
		Text:           userArg,
		Keypoint:       conKP,
		Intent:         *resolved,
		IsFeedback:     p.isFeedback,
		OrigText:       p.rawText,
		TranslatedText: translated,
		IsConcern:      isConcern,
		IsProfanity:    isProfanity,
	})

	proArgs := pack.Knowledge.Arguments(proKP, record.CampaignID)

	candidates, err := pack.ConnectingText.Rephrase(proArgs, resolved.Label, persona, response.RephraseOptions{})
	if err != nil {
		return nil, err
	}

	selection, err := m.selector.Select(ctx, candidates, history, systemArgs)
	if err != nil {
		return nil, err
	}
	if selection.Chosen == nil {
		return nil, fmt.Errorf("dialog: no response candidate for intent %q", resolved.Label)
	}
	chosen := selection.Chosen

	messageID := record.AppendSystemTurn(SystemOutput{
		Text:                    chosen.Text,
		BaseResponse:            chosen.BaseResponse,
		Keypoint:                proKP,
		CannedText:              chosen.CannedText,
		Candidates:              selection.Texts,
		Scores:                  selection.Scores,
		OrigScores:              selection.RawScores,
		ProcessingTime:          time.Since(start),
		IsConcern:               isConcern,
		RequestFeedback:         requestFeedback,
		RequestThumbsFeedback:   !skipKPFeedback,
		KeypointCandidates:      conKPs,
		KeypointCandidatesQForm: conKPCandidates,
	})

	if err := m.store.Commit(ctx, record); err != nil {
		return nil, err
	}
	if err := m.archive.Save(ctx, record); err != nil {
		m.logger.Warn("dialog archive write failed", "session_id", record.ID, "error", err)
	}

	duration := time.Since(start)
	if m.observer != nil {
		m.observer.ObserveTurn(languageCode, resolved.Label, duration)
	}
	m.logger.Info("processed turn",
		"session_id", record.ID,
		"message_id", messageID,
		"intent", resolved.Label,
		"con_kp", conKP,
		"is_concern", isConcern,
		"is_profanity", isProfanity,
		"duration_ms", duration.Milliseconds())

	// Never ask for feedback before any real content was exchanged.
	requestFeedback = messageID > 1 && requestFeedback

	resp := &TurnResponse{
		Response:        chosen.Text,
		ProArg:          chosen.BaseResponse,
		ConKP:           conKP,
		ProKP:           proKP,
		Intent:          resolved,
		MessageID:       messageID,
		SessionID:       record.ID,
		RequestFeedback: requestFeedback,
		ConKPs:          conKPs,
		ConKPScores:     conKPScores,
		ConKPCandidates: conKPCandidates,
		SkipKPFeedback:  skipKPFeedback,
		Expression:      chosen.Expression,
		IsConcern:       isConcern,
		IsProfanity:     isProfanity,
	}
	if p.rawText != nil {
		resp.Text = *p.rawText
	}
	if translated != nil {
		resp.TextTranslated = *translated
	}
	return resp, nil
}

func (m *Manager) loadOrCreate(ctx context.Context, p textParams) (*Record, error) {
	if p.create != nil {
		record := &Record{
			Label:             p.create.Label,
			CampaignID:        p.create.CampaignID,
			OpeningSurveyFlow: p.create.OpeningSurveyFlow,
			Platform:          p.create.Platform,
			LanguageCode:      p.create.LanguageCode,
		}
		if err := m.store.Create(ctx, record); err != nil {
			return nil, err
		}
		return record, nil
	}
	return m.store.Get(ctx, p.sessionID)
}

func (m *Manager) processOpeningSurvey(ctx context.Context, record *Record, rt *Language, answer *string) (*TurnResponse, error) {
	if answer != nil {
		if err := record.AnswerSurveyQuestion(*answer); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadInput, err)
		}
		if err := m.store.Commit(ctx, record); err != nil {
			return nil, err
		}
	}

	question, ok := rt.Survey.NextQuestion(record.OpeningSurveyFlow, record.AskedSurveyQuestions())
	if ok {
		record.AddSurveyQuestion(question.Intent, question.Question, question.Choices)
		if err := m.store.Commit(ctx, record); err != nil {
			return nil, err
		}
		return &TurnResponse{
			SurveyQuestion: question.Question,
			SurveyChoices:  question.Choices,
			SessionID:      record.ID,
			OpeningSurvey:  true,
		}, nil
	}

	// The flow is exhausted: close the survey and hand off to the
	// normal dialog with a forced post-survey intro intent.
	closingText, err := rt.Pack.ConnectingText.Single(rt.Survey.ClosingIntent(), defaultPersona)
	if err != nil {
		return nil, err
	}

	postIntent := intent.ForSurvey(rt.Survey.IntroIntent())
	resp, err := m.processUserText(ctx, textParams{
		sessionID:    record.ID,
		forcedIntent: &postIntent,
	})
	if err != nil {
		return nil, err
	}
	resp.SurveyResponse = closingText
	return resp, nil
}

func (m *Manager) discontinueSurvey(ctx context.Context, record *Record) error {
	if err := record.DiscontinueSurvey(); err != nil {
		return err
	}
	if err := m.store.Commit(ctx, record); err != nil {
		return err
	}

	// Run an empty turn so the record starts with the usual
	// user/system opening pair, then hide that opening from clients.
	if _, err := m.processUserText(ctx, textParams{sessionID: record.ID}); err != nil {
		return err
	}
	updated, err := m.store.Get(ctx, record.ID)
	if err != nil {
		return err
	}
	if err := updated.SkipSystemOpening(); err != nil {
		return err
	}
	return m.store.Commit(ctx, updated)
}
