package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concernlab/dialog-platform/internal/intent"
)

func testLibrary(t *testing.T, buckets map[string]TemplateSet) *Library {
	t.Helper()
	lib, err := NewLibrary(map[string]map[string]map[string]TemplateSet{
		"CONCERN": {"general": buckets},
	})
	require.NoError(t, err)
	return lib
}

func TestNewLibraryRejectsUnknownIntent(t *testing.T) {
	_, err := NewLibrary(map[string]map[string]map[string]TemplateSet{
		"NOT_A_REAL_INTENT": {},
	})
	require.Error(t, err)
}

func TestRephrasePrefixAndSuffix(t *testing.T) {
	lib := testLibrary(t, map[string]TemplateSet{
		GeneralType: {
			Prefix: []Snippet{{Text: "Sure,", Expression: "emoji1"}},
			Suffix: []Snippet{{Text: "thanks!", Expression: "emoji2"}},
		},
	})

	args := []Argument{NewArgument("Vaccines are safe", GeneralType)}
	got, err := lib.Rephrase(args, intent.LabelConcern, "general", RephraseOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Sure, vaccines are safe", got[0].Text)
	assert.Equal(t, "emoji1", got[0].Expression)
	assert.Equal(t, "Vaccines are safe", got[0].BaseResponse)
	assert.Equal(t, [2]string{"Sure, ", ""}, got[0].CannedText)

	assert.Equal(t, "Vaccines are safe thanks!", got[1].Text)
	assert.Equal(t, "emoji2", got[1].Expression)
	assert.Equal(t, [2]string{"", " thanks!"}, got[1].CannedText)
}

func TestRephraseBothSides(t *testing.T) {
	lib := testLibrary(t, map[string]TemplateSet{
		GeneralType: {
			Prefix: []Snippet{{Text: "Sure,", Expression: "emoji1"}},
			Suffix: []Snippet{{Text: "thanks!", Expression: "emoji2"}},
		},
	})

	args := []Argument{NewArgument("Vaccines are safe", GeneralType)}
	got, err := lib.Rephrase(args, intent.LabelConcern, "general", RephraseOptions{BothSides: true})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Sure, vaccines are safe thanks!", got[2].Text)
	assert.Equal(t, "emoji1", got[2].Expression)
	assert.Equal(t, [2]string{"Sure, ", " thanks!"}, got[2].CannedText)
}

func TestRephraseLoweringRule(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		arg    string
		want   string
	}{
		{"comma continues the sentence", "Indeed,", "Vaccines are safe", "Indeed, vaccines are safe"},
		{"period starts a new sentence", "Indeed.", "Vaccines are safe", "Indeed. Vaccines are safe"},
		{"exclamation starts a new sentence", "Good question!", "Vaccines are safe", "Good question! Vaccines are safe"},
		{"acronym stays uppercase", "Indeed,", "DNA is not altered", "Indeed, DNA is not altered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := testLibrary(t, map[string]TemplateSet{
				GeneralType: {Prefix: []Snippet{{Text: tt.prefix, Expression: "e"}}},
			})
			got, err := lib.Rephrase([]Argument{NewArgument(tt.arg, GeneralType)},
				intent.LabelConcern, "general", RephraseOptions{})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Text)
		})
	}
}

func TestRephraseTypedBucketFiltersArguments(t *testing.T) {
	lib := testLibrary(t, map[string]TemplateSet{
		"humor": {Prefix: []Snippet{{Text: "Funny you ask,", Expression: "e1"}}},
	})

	args := []Argument{
		NewArgument("Vaccines are safe", GeneralType),
		NewArgument("No microchips involved", "humor"),
	}
	got, err := lib.Rephrase(args, intent.LabelConcern, "general", RephraseOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Funny you ask, no microchips involved", got[0].Text)
	assert.Equal(t, "humor", got[0].Type)
}

func TestRephraseNoCannedTextPassesThrough(t *testing.T) {
	lib := testLibrary(t, map[string]TemplateSet{
		GeneralType: {Prefix: []Snippet{{Text: "Sure,", Expression: "e1"}}},
	})

	args := []Argument{NewArgument("Here is the link you asked for.", NoCannedTextType)}
	got, err := lib.Rephrase(args, intent.LabelConcern, "general", RephraseOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Here is the link you asked for.", got[0].Text)
	assert.Equal(t, "Here is the link you asked for.", got[0].BaseResponse)
	assert.Equal(t, DefaultExpression, got[0].Expression)
	assert.Equal(t, [2]string{"", ""}, got[0].CannedText)
}

func TestRephraseFallsBackToFullResponses(t *testing.T) {
	lib := testLibrary(t, map[string]TemplateSet{
		GeneralType: {
			Full: []Snippet{
				{Text: "Hello! What is on your mind?", Expression: "e1"},
				{Text: "Hi there, how can I help?", Expression: "e2"},
			},
		},
	})

	got, err := lib.Rephrase(nil, intent.LabelConcern, "general", RephraseOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Hello! What is on your mind?", got[0].Text)
	assert.Equal(t, "Hello! What is on your mind?", got[0].BaseResponse)
	assert.Equal(t, "e1", got[0].Expression)
	assert.Equal(t, GeneralType, got[0].Type)
}

func TestRephraseUnknownIntent(t *testing.T) {
	lib := testLibrary(t, map[string]TemplateSet{GeneralType: {}})
	_, err := lib.Rephrase(nil, intent.LabelFarewell, "general", RephraseOptions{})
	require.Error(t, err)
}

func TestSingle(t *testing.T) {
	lib := testLibrary(t, map[string]TemplateSet{
		GeneralType: {Full: []Snippet{{Text: "Thanks for taking the survey!", Expression: "e1"}}},
	})
	text, err := lib.Single(intent.LabelConcern, "general")
	require.NoError(t, err)
	assert.Equal(t, "Thanks for taking the survey!", text)
}

func TestCreateAllCombinationsIsDeterministic(t *testing.T) {
	raw := map[string]map[string]map[string]TemplateSet{
		"GREETING": {"general": {GeneralType: {Full: []Snippet{{Text: "Hi!", Expression: "e1"}}}}},
		"CONCERN": {"general": {GeneralType: {
			Prefix: []Snippet{{Text: "Sure,", Expression: "e2"}},
			Full:   []Snippet{{Text: "Tell me more.", Expression: "e3"}},
		}}},
	}
	lib, err := NewLibrary(raw)
	require.NoError(t, err)

	args := []Argument{NewArgument("Vaccines are safe", GeneralType)}
	first, err := lib.CreateAllCombinations(args)
	require.NoError(t, err)
	second, err := lib.CreateAllCombinations(args)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// CONCERN sorts before GREETING; Initial mode keeps the full
	// responses alongside the templated combinations.
	require.Len(t, first, 3)
	assert.Equal(t, "Sure, vaccines are safe", first[0].Text)
	assert.Equal(t, "Tell me more.", first[1].Text)
	assert.Equal(t, "Hi!", first[2].Text)
}
