package dialog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, managerFixture) {
	t.Helper()
	fix := newTestManager(t, false, map[string][]float64{
		childrenQForm: {0.9, 0.2},
	}, "CONCERN")

	router := chi.NewRouter()
	NewHandler(fix.manager, nil).Routes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, fix
}

func postDialog(t *testing.T, srv *httptest.Server, body map[string]any) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/dialog/en", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHandlerNewSession(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := postDialog(t, srv, map[string]any{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["session_id"])
	assert.Equal(t, introText, body["response"])
	assert.Equal(t, float64(1), body["message_id"])
}

func TestHandlerUserText(t *testing.T) {
	srv, _ := newTestServer(t)

	_, created := postDialog(t, srv, map[string]any{})
	sessionID := created["session_id"].(string)

	resp, body := postDialog(t, srv, map[string]any{
		"session_id": sessionID,
		"text":       childrenQForm,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "vaccine-safety-children", body["con_kp"])
	assert.Equal(t, "I hear you. "+childrenArg, body["response"])
	assert.Equal(t, true, body["request_feedback"])
}

func TestHandlerFeedbackSelection(t *testing.T) {
	srv, _ := newTestServer(t)

	_, created := postDialog(t, srv, map[string]any{})
	sessionID := created["session_id"].(string)

	resp, body := postDialog(t, srv, map[string]any{
		"session_id": sessionID,
		"text":       childrenQForm,
		"feedback":   true,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "FEEDBACK_NEW_KP", body["intent"].(map[string]any)["label"])
}

func TestHandlerTurnRating(t *testing.T) {
	srv, fix := newTestServer(t)

	_, created := postDialog(t, srv, map[string]any{})
	sessionID := created["session_id"].(string)

	resp, _ := postDialog(t, srv, map[string]any{
		"session_id": sessionID,
		"message_id": 1,
		"feedback":   -1,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	record, err := fix.store.Get(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, record.Turns[1].Feedback)
	assert.Equal(t, -1, *record.Turns[1].Feedback)
}

func TestHandlerSurveyPayload(t *testing.T) {
	srv, fix := newTestServer(t)

	_, created := postDialog(t, srv, map[string]any{})
	sessionID := created["session_id"].(string)

	resp, _ := postDialog(t, srv, map[string]any{
		"session_id": sessionID,
		"survey":     map[string]any{"helpful": true},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	record, err := fix.store.Get(context.Background(), sessionID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"helpful": true}`, string(record.Survey))
}

func TestHandlerValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	_, created := postDialog(t, srv, map[string]any{})
	sessionID := created["session_id"].(string)

	tests := []struct {
		name string
		body map[string]any
		code int
	}{
		{
			name: "malformed session id",
			body: map[string]any{"session_id": "not-a-uuid", "text": "hello"},
			code: http.StatusBadRequest,
		},
		{
			name: "unknown session",
			body: map[string]any{"session_id": "3f0a1d4e-0000-4000-8000-000000000000", "text": "tell me about vaccines"},
			code: http.StatusNotFound,
		},
		{
			name: "empty text",
			body: map[string]any{"session_id": sessionID, "text": ""},
			code: http.StatusBadRequest,
		},
		{
			name: "text too long",
			body: map[string]any{"session_id": sessionID, "text": strings.Repeat("a", 300)},
			code: http.StatusBadRequest,
		},
		{
			name: "feedback value out of range",
			body: map[string]any{"session_id": sessionID, "message_id": 1, "feedback": 5},
			code: http.StatusBadRequest,
		},
		{
			name: "message id out of range",
			body: map[string]any{"session_id": sessionID, "message_id": 500, "feedback": 1},
			code: http.StatusBadRequest,
		},
		{
			name: "feedback flag must be boolean with text",
			body: map[string]any{"session_id": sessionID, "text": "hello", "feedback": "yes"},
			code: http.StatusBadRequest,
		},
		{
			name: "no operation selected",
			body: map[string]any{"session_id": sessionID},
			code: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postDialog(t, srv, tt.body)
			assert.Equal(t, tt.code, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandlerMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/dialog/en", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
