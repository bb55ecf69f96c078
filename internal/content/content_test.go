package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concernlab/dialog-platform/internal/intent"
)

func TestLoad(t *testing.T) {
	bundle, err := Load(filepath.Join("testdata", "resources"), []string{"en"})
	require.NoError(t, err)

	assert.Equal(t, "en", bundle.DefaultLanguage())
	assert.Equal(t, []string{"damn", "crap"}, bundle.ProfanityTerms)
	assert.Equal(t, []string{"go away", "shut up"}, bundle.ProfanityPhrases)

	pack, ok := bundle.Pack("en")
	require.True(t, ok)
	assert.Equal(t, "ltr", pack.Direction)
	assert.True(t, pack.Default)
	assert.Len(t, pack.Keypoints, 3)
	assert.Equal(t, "Type your question here", pack.UITexts["input_placeholder"])

	require.Len(t, pack.FeedbackOptions, 4)
	assert.Equal(t, intent.LabelFeedbackNoneOfKPs, pack.FeedbackOptions[0].Label)
	assert.True(t, pack.FeedbackOptions[0].Candidate)
	assert.True(t, pack.FeedbackOptions[2].LocationSpecific)
	assert.True(t, pack.FeedbackOptions[3].SelectsKeypoint)

	require.True(t, pack.OpeningSurvey.Enabled)
	assert.Equal(t, "standard", pack.OpeningSurvey.DefaultFlow)

	question, err := pack.QForms.Questions([]string{"Can children get the vaccine?"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Can children get the vaccine?"}, question)

	assert.Equal(t, "The vaccine is safe", pack.Knowledge.ResponseKeypoint("Is the vaccine safe?"))
	args := pack.Knowledge.Arguments("The vaccine is safe", "campaign-nyc")
	require.Len(t, args, 2)
	assert.Contains(t, args[1].Text, "https://example.org/nyc/safety")
}

func TestLoadUnknownLanguage(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "resources"), []string{"en", "xx"})
	require.Error(t, err)
}

func TestLoadNoLanguages(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "resources"), nil)
	require.Error(t, err)
}

// writePack lays out a minimal resource directory with the given
// language file, for load-failure cases.
func writePack(t *testing.T, languageYAML string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profanity.yaml"), []byte("terms: [damn]\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "languages"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "languages", "en.yaml"), []byte(languageYAML), 0o644))
	return dir
}

func TestLoadFailures(t *testing.T) {
	valid := `
direction: ltr
default: true
connecting_text:
  DEFAULT:
    general:
      general:
        full: [{text: "Sorry?", expression: "1-Neutral"}]
`

	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown connecting text intent",
			yaml: `
direction: ltr
default: true
connecting_text:
  NOT_AN_INTENT:
    general: {}
`,
		},
		{
			name: "bad direction",
			yaml: `
direction: down
default: true
`,
		},
		{
			name: "no default language",
			yaml: `
direction: ltr
default: false
`,
		},
		{
			name: "index keypoint without question form",
			yaml: valid + `
keypoints: ["Is it safe?"]
`,
		},
		{
			name: "mapped keypoint missing from index",
			yaml: valid + `
response_db:
  mapping: {"Is it safe?": "It is safe"}
  responses:
    "It is safe": [{text: "Yes."}]
`,
		},
		{
			name: "mapped keypoint without responses",
			yaml: valid + `
keypoints: ["Is it safe?"]
question_forms: {"Is it safe?": "Is it safe?"}
response_db:
  mapping: {"Is it safe?": "It is safe"}
`,
		},
		{
			name: "feedback option with unknown intent",
			yaml: valid + `
feedback_options:
  - pattern: "None of the above"
    intent: NOT_AN_INTENT
`,
		},
		{
			name: "survey flow references unknown question",
			yaml: valid + `
opening_survey:
  enabled: true
  closing_intent: SURVEY_CLOSING
  intro_intent: INTRO_DISCUSSION_AFTER_SURVEY
  default_flow: standard
  flows:
    standard: [MISSING_QUESTION]
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writePack(t, tt.yaml)
			_, err := Load(dir, []string{"en"})
			require.Error(t, err)
		})
	}
}

// A pack that covers every pipeline label except one must fail to load:
// the context rules always run, so a missing entry would surface as a
// serve-time error on an ordinary turn.
func TestLoadRequiresPipelineIntentText(t *testing.T) {
	var b strings.Builder
	b.WriteString("direction: ltr\ndefault: true\nconnecting_text:\n")
	for _, label := range intent.PipelineLabels() {
		if label == intent.LabelSameKPTwiceInARow {
			continue
		}
		fmt.Fprintf(&b, "  %s:\n    general:\n      general:\n        full: [{text: \"ok\", expression: \"1-Neutral\"}]\n", label)
	}

	dir := writePack(t, b.String())
	_, err := Load(dir, []string{"en"})
	require.ErrorContains(t, err, string(intent.LabelSameKPTwiceInARow))
}
