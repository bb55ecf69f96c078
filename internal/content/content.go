// Package content loads the authored dialog resources from disk: the
// connecting-text library, the response knowledge base, keypoint
// indexes and question forms, feedback menus, UI texts, opening-survey
// flows, and the shared profanity lexicon. Everything is validated at
// load time and immutable afterwards.
package content

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/concernlab/dialog-platform/internal/intent"
	"github.com/concernlab/dialog-platform/internal/keypoint"
	"github.com/concernlab/dialog-platform/internal/response"
)

// SurveyQuestion is one authored opening-survey question. The map key
// under which it is authored doubles as its question intent.
type SurveyQuestion struct {
	Question string   `yaml:"question"`
	Choices  []string `yaml:"choices"`
}

// SurveyConfig is the authored opening-survey definition of one language.
type SurveyConfig struct {
	Enabled       bool                      `yaml:"enabled"`
	ClosingIntent string                    `yaml:"closing_intent"`
	IntroIntent   string                    `yaml:"intro_intent"`
	DefaultFlow   string                    `yaml:"default_flow"`
	Flows         map[string][]string       `yaml:"flows"`
	Questions     map[string]SurveyQuestion `yaml:"questions"`
}

// FeedbackOption is one authored feedback-menu entry.
type FeedbackOption struct {
	Pattern          string `yaml:"pattern"`
	Intent           string `yaml:"intent"`
	SelectsKeypoint  bool   `yaml:"selects_keypoint"`
	Candidate        bool   `yaml:"candidate"`
	LocationSpecific bool   `yaml:"location_specific"`
}

type snippetFile struct {
	Text       string `yaml:"text"`
	Expression string `yaml:"expression"`
}

type templateSetFile struct {
	Prefix []snippetFile `yaml:"prefix"`
	Suffix []snippetFile `yaml:"suffix"`
	Full   []snippetFile `yaml:"full"`
}

type argumentFile struct {
	Text  string            `yaml:"text"`
	Type  string            `yaml:"type"`
	Links map[string]string `yaml:"links"`
}

type responseDBFile struct {
	Mapping   map[string]string         `yaml:"mapping"`
	Responses map[string][]argumentFile `yaml:"responses"`
}

type languageFile struct {
	Direction       string                                           `yaml:"direction"`
	Default         bool                                             `yaml:"default"`
	UITexts         map[string]string                                `yaml:"ui_texts"`
	FeedbackOptions []FeedbackOption                                 `yaml:"feedback_options"`
	OpeningSurvey   SurveyConfig                                     `yaml:"opening_survey"`
	Keypoints       []string                                         `yaml:"keypoints"`
	QuestionForms   map[string]string                                `yaml:"question_forms"`
	ConnectingText  map[string]map[string]map[string]templateSetFile `yaml:"connecting_text"`
	ResponseDB      responseDBFile                                   `yaml:"response_db"`
}

type profanityFile struct {
	Terms   []string `yaml:"terms"`
	Phrases []string `yaml:"phrases"`
}

// Pack holds all authored resources of one language.
type Pack struct {
	Code            string
	Direction       string
	Default         bool
	UITexts         map[string]string
	FeedbackOptions []intent.FeedbackOption
	// FeedbackMenu keeps the authored entries with their candidate and
	// location flags, in authored order.
	FeedbackMenu   []FeedbackOption
	OpeningSurvey  SurveyConfig
	ConnectingText *response.Library
	Knowledge      *response.KnowledgeBase
	QForms         *keypoint.QForms
	// Keypoints is the concern-keypoint index in scoring-oracle order.
	Keypoints []string
}

// Bundle is the full authored-content set: one pack per language plus
// the shared profanity lexicon.
type Bundle struct {
	packs            map[string]*Pack
	defaultCode      string
	ProfanityTerms   []string
	ProfanityPhrases []string
}

// Load reads the authored resources under dir for the given languages.
// Expected layout: dir/profanity.yaml and dir/languages/<code>.yaml.
// Any structural or vocabulary error is fatal.
func Load(dir string, languages []string) (*Bundle, error) {
	if len(languages) == 0 {
		return nil, fmt.Errorf("content: no languages configured")
	}

	var profanity profanityFile
	if err := readYAML(filepath.Join(dir, "profanity.yaml"), &profanity); err != nil {
		return nil, err
	}

	bundle := &Bundle{
		packs:            make(map[string]*Pack, len(languages)),
		ProfanityTerms:   profanity.Terms,
		ProfanityPhrases: profanity.Phrases,
	}

	for _, code := range languages {
		pack, err := loadPack(dir, code)
		if err != nil {
			return nil, err
		}
		bundle.packs[code] = pack
		if pack.Default {
			if bundle.defaultCode != "" {
				return nil, fmt.Errorf("content: both %q and %q are marked as the default language", bundle.defaultCode, code)
			}
			bundle.defaultCode = code
		}
	}
	if bundle.defaultCode == "" {
		return nil, fmt.Errorf("content: no language is marked as default")
	}
	return bundle, nil
}

// Pack returns the resources of one language.
func (b *Bundle) Pack(code string) (*Pack, bool) {
	pack, ok := b.packs[code]
	return pack, ok
}

// DefaultLanguage returns the language code marked as default.
func (b *Bundle) DefaultLanguage() string {
	return b.defaultCode
}

// Languages returns the loaded language codes.
func (b *Bundle) Languages() []string {
	codes := make([]string, 0, len(b.packs))
	for code := range b.packs {
		codes = append(codes, code)
	}
	return codes
}

func loadPack(dir, code string) (*Pack, error) {
	var file languageFile
	if err := readYAML(filepath.Join(dir, "languages", code+".yaml"), &file); err != nil {
		return nil, err
	}

	if file.Direction != "ltr" && file.Direction != "rtl" {
		return nil, fmt.Errorf("content: language %q: direction must be ltr or rtl, got %q", code, file.Direction)
	}

	library, err := buildLibrary(file.ConnectingText)
	if err != nil {
		return nil, fmt.Errorf("content: language %q: %w", code, err)
	}

	knowledge, err := buildKnowledge(file.ResponseDB)
	if err != nil {
		return nil, fmt.Errorf("content: language %q: %w", code, err)
	}

	// Every index keypoint needs a question form: unmapped keypoints can
	// still surface as advisory candidates. Every mapped concern keypoint
	// must be scorable.
	indexSet := make(map[string]struct{}, len(file.Keypoints))
	for _, kp := range file.Keypoints {
		indexSet[kp] = struct{}{}
		if _, ok := file.QuestionForms[kp]; !ok {
			return nil, fmt.Errorf("content: language %q: keypoint %q has no question form", code, kp)
		}
	}
	for _, kp := range knowledge.ConcernKeypoints() {
		if _, ok := indexSet[kp]; !ok {
			return nil, fmt.Errorf("content: language %q: keypoint %q is mapped in the response db but missing from the keypoint index", code, kp)
		}
	}

	options, err := buildFeedbackOptions(file.FeedbackOptions)
	if err != nil {
		return nil, fmt.Errorf("content: language %q: %w", code, err)
	}

	if err := validateSurvey(file.OpeningSurvey); err != nil {
		return nil, fmt.Errorf("content: language %q: %w", code, err)
	}

	if err := validateLibraryCoverage(library, options, file.OpeningSurvey); err != nil {
		return nil, fmt.Errorf("content: language %q: %w", code, err)
	}

	return &Pack{
		Code:            code,
		Direction:       file.Direction,
		Default:         file.Default,
		UITexts:         file.UITexts,
		FeedbackOptions: options,
		FeedbackMenu:    file.FeedbackOptions,
		OpeningSurvey:   file.OpeningSurvey,
		ConnectingText:  library,
		Knowledge:       knowledge,
		QForms:          keypoint.NewQForms(file.QuestionForms),
		Keypoints:       file.Keypoints,
	}, nil
}

func buildLibrary(raw map[string]map[string]map[string]templateSetFile) (*response.Library, error) {
	converted := make(map[string]map[string]map[string]response.TemplateSet, len(raw))
	for label, personas := range raw {
		converted[label] = make(map[string]map[string]response.TemplateSet, len(personas))
		for persona, buckets := range personas {
			converted[label][persona] = make(map[string]response.TemplateSet, len(buckets))
			for argType, set := range buckets {
				converted[label][persona][argType] = response.TemplateSet{
					Prefix: convertSnippets(set.Prefix),
					Suffix: convertSnippets(set.Suffix),
					Full:   convertSnippets(set.Full),
				}
			}
		}
	}
	return response.NewLibrary(converted)
}

func convertSnippets(in []snippetFile) []response.Snippet {
	if len(in) == 0 {
		return nil
	}
	out := make([]response.Snippet, len(in))
	for i, s := range in {
		out[i] = response.Snippet{Text: s.Text, Expression: s.Expression}
	}
	return out
}

func buildKnowledge(file responseDBFile) (*response.KnowledgeBase, error) {
	args := make(map[string][]response.Argument, len(file.Responses))
	for proKP, templates := range file.Responses {
		list := make([]response.Argument, len(templates))
		for i, t := range templates {
			argType := t.Type
			if argType == "" {
				argType = response.GeneralType
			}
			arg := response.NewArgument(t.Text, argType)
			arg.LinkReplacement = t.Links
			list[i] = arg
		}
		args[proKP] = list
	}
	for conKP, proKP := range file.Mapping {
		if _, ok := args[proKP]; !ok {
			return nil, fmt.Errorf("response keypoint %q (mapped from %q) has no authored responses", proKP, conKP)
		}
	}
	return response.NewKnowledgeBase(file.Mapping, args), nil
}

func buildFeedbackOptions(menu []FeedbackOption) ([]intent.FeedbackOption, error) {
	options := make([]intent.FeedbackOption, len(menu))
	for i, entry := range menu {
		if entry.Pattern == "" {
			return nil, fmt.Errorf("feedback option %d has an empty pattern", i)
		}
		label, err := intent.ParseLabel(entry.Intent)
		if err != nil {
			return nil, fmt.Errorf("feedback option %q: %w", entry.Pattern, err)
		}
		options[i] = intent.FeedbackOption{
			Pattern:          entry.Pattern,
			Label:            label,
			SelectsKeypoint:  entry.SelectsKeypoint,
			Candidate:        entry.Candidate,
			LocationSpecific: entry.LocationSpecific,
		}
	}
	return options, nil
}

// validateLibraryCoverage checks the reverse direction of the library
// validation: every label the pipeline, the feedback menu, or the survey
// can produce must have connecting text, or a reachable turn fails at
// serve time.
func validateLibraryCoverage(library *response.Library, options []intent.FeedbackOption, survey SurveyConfig) error {
	required := intent.PipelineLabels()
	for _, opt := range options {
		required = append(required, opt.Label)
	}
	if survey.Enabled {
		closing, _ := intent.ParseLabel(survey.ClosingIntent)
		intro, _ := intent.ParseLabel(survey.IntroIntent)
		required = append(required, closing, intro)
	}
	for _, label := range required {
		if !library.Covers(label) {
			return fmt.Errorf("connecting text missing for reachable intent %q", label)
		}
	}
	return nil
}

func validateSurvey(survey SurveyConfig) error {
	if !survey.Enabled {
		return nil
	}
	if _, err := intent.ParseLabel(survey.ClosingIntent); err != nil {
		return fmt.Errorf("opening survey closing intent: %w", err)
	}
	if _, err := intent.ParseLabel(survey.IntroIntent); err != nil {
		return fmt.Errorf("opening survey intro intent: %w", err)
	}
	if _, ok := survey.Flows[survey.DefaultFlow]; !ok {
		return fmt.Errorf("opening survey default flow %q is not a configured flow", survey.DefaultFlow)
	}
	for flow, questionIDs := range survey.Flows {
		for _, id := range questionIDs {
			if _, ok := survey.Questions[id]; !ok {
				return fmt.Errorf("opening survey flow %q references unknown question %q", flow, id)
			}
		}
	}
	return nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("content: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("content: parse %s: %w", path, err)
	}
	return nil
}
