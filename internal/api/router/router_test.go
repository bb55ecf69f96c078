package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concernlab/dialog-platform/internal/content"
	"github.com/concernlab/dialog-platform/internal/dialog"
	"github.com/concernlab/dialog-platform/internal/intent"
	"github.com/concernlab/dialog-platform/internal/keypoint"
	"github.com/concernlab/dialog-platform/internal/response"
	"github.com/concernlab/dialog-platform/internal/survey"
	"github.com/concernlab/dialog-platform/internal/textproc"
	"github.com/concernlab/dialog-platform/pkg/logging"
)

type stubClassifier struct{}

func (stubClassifier) Classify(context.Context, string, bool) ([]string, []float64, error) {
	return []string{"CONCERN"}, []float64{0.9}, nil
}

type stubKPScorer struct{}

func (stubKPScorer) Scores(_ context.Context, utterances []string, _ bool) ([][]float64, error) {
	out := make([][]float64, len(utterances))
	for i := range out {
		out[i] = []float64{0}
	}
	return out, nil
}

type stubResponseScorer struct{}

func (stubResponseScorer) Rank(_ context.Context, _ []string, candidates []string) ([]string, []float64, error) {
	scores := make([]float64, len(candidates))
	for i := range scores {
		scores[i] = 1 - float64(i)*0.01
	}
	return candidates, scores, nil
}

func newTestRouter(t *testing.T, apiKey string) http.Handler {
	return newTestRouterWithConfig(t, func(cfg *Config) { cfg.APIKey = apiKey })
}

func newTestRouterWithConfig(t *testing.T, mutate func(*Config)) http.Handler {
	t.Helper()

	library, err := response.NewLibrary(map[string]map[string]map[string]response.TemplateSet{
		"INTRO_DISCUSSION": {"general": {"general": {
			Full: []response.Snippet{{Text: "Hi! Ask me about vaccines.", Expression: "2-Big-Smile"}},
		}}},
		"DEFAULT_WITH_FEEDBACK": {"general": {"general": {
			Full: []response.Snippet{{Text: "Could you rephrase?", Expression: "3-Thinking"}},
		}}},
	})
	require.NoError(t, err)

	engine, err := survey.NewEngine(content.SurveyConfig{})
	require.NoError(t, err)

	pack := &content.Pack{
		Code:           "en",
		Direction:      "ltr",
		ConnectingText: library,
		Knowledge:      response.NewKnowledgeBase(nil, nil),
		QForms:         keypoint.NewQForms(nil),
		Keypoints:      []string{"vaccine-safety"},
	}

	manager, err := dialog.NewManager(dialog.Options{
		Store:     dialog.NewMemoryStore(),
		Detector:  intent.NewDetector(stubClassifier{}, 0.65, true),
		Selector:  response.NewSelector(stubResponseScorer{}, 0.5, 0.7),
		Profanity: textproc.NewProfanityClassifier(nil, nil),
		Concern:   textproc.NewConcernClassifier(),
		Coref:     textproc.NewCorefResolver("the vaccine", "vaccine"),
		Languages: map[string]*dialog.Language{"en": {
			Pack:    pack,
			Survey:  engine,
			Matcher: keypoint.NewMatcher(stubKPScorer{}, pack.Keypoints, 0.4),
		}},
		DefaultLanguage: "en",
		AdvisoryEnabled: true,
	})
	require.NoError(t, err)

	cfg := &Config{
		Logger:         logging.Default(),
		DialogHandler:  dialog.NewHandler(manager, nil),
		MetricsHandler: promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
	}
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg)
}

func TestRouterHealth(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouterMetrics(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterDialogRequiresAuth(t *testing.T) {
	router := newTestRouter(t, "secret")

	req := httptest.NewRequest(http.MethodPost, "/dialog/en", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/dialog/en", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterRateLimit(t *testing.T) {
	router := newTestRouterWithConfig(t, func(cfg *Config) {
		cfg.RateLimit = 1
		cfg.RateBurst = 1
	})

	req := httptest.NewRequest(http.MethodPost, "/dialog/en", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The single-token bucket is exhausted, so an immediate second
	// request from the same client is rejected.
	req = httptest.NewRequest(http.MethodPost, "/dialog/en", bytes.NewReader([]byte(`{}`)))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Public endpoints are not limited.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterDialogNewSession(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/dialog/en", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_id")
	assert.Contains(t, rec.Body.String(), "Hi! Ask me about vaccines.")
}
