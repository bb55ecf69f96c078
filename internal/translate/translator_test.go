package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	var gotModelID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "apikey", user)
		assert.Equal(t, "secret", pass)

		var req translateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModelID = req.ModelID
		require.Len(t, req.Text, 1)

		json.NewEncoder(w).Encode(map[string]any{
			"translations": []map[string]string{{"translation": "Is the vaccine safe?"}},
		})
	}))
	defer server.Close()

	tr := New(Config{Endpoint: server.URL, APIKey: "secret", Enabled: []string{"es"}})
	require.True(t, tr.Enabled("es"))
	assert.False(t, tr.Enabled("en"))
	assert.False(t, tr.Enabled("fr"))

	out, err := tr.Translate(context.Background(), "¿Es segura la vacuna?", "es")
	require.NoError(t, err)
	assert.Equal(t, "Is the vaccine safe?", out)
	assert.Equal(t, "es-en", gotModelID)
}

func TestTranslatePassthrough(t *testing.T) {
	tr := New(Config{})
	out, err := tr.Translate(context.Background(), "hello", "es")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestTranslateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	tr := New(Config{Endpoint: server.URL, Enabled: []string{"es"}})
	_, err := tr.Translate(context.Background(), "hola", "es")
	require.Error(t, err)
}

func TestTranslateEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"translations": []any{}})
	}))
	defer server.Close()

	tr := New(Config{Endpoint: server.URL, Enabled: []string{"es"}})
	_, err := tr.Translate(context.Background(), "hola", "es")
	require.Error(t, err)
}
