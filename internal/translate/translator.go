// Package translate is the machine-translation boundary: user text in a
// non-pipeline language is translated before classification. Languages
// without an enabled model pass through unchanged.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const pipelineLanguage = "en"

// Config controls the translator client.
type Config struct {
	Endpoint string
	APIKey   string
	// Enabled lists the language codes with a deployed translation
	// model.
	Enabled    []string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Translator calls the external translation service.
type Translator struct {
	endpoint   string
	apiKey     string
	enabled    map[string]bool
	httpClient *http.Client
}

// New creates a translator. An empty endpoint or enabled list yields a
// passthrough translator.
func New(cfg Config) *Translator {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	enabled := make(map[string]bool, len(cfg.Enabled))
	if cfg.Endpoint != "" {
		for _, code := range cfg.Enabled {
			enabled[code] = true
		}
	}
	return &Translator{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		enabled:    enabled,
		httpClient: httpClient,
	}
}

// Enabled reports whether texts in the given language are translated.
// The pipeline language itself never is.
func (t *Translator) Enabled(languageCode string) bool {
	return languageCode != pipelineLanguage && t.enabled[languageCode]
}

type translateRequest struct {
	Text    []string `json:"text"`
	ModelID string   `json:"model_id"`
}

type translateResponse struct {
	Translations []struct {
		Translation string `json:"translation"`
	} `json:"translations"`
}

// Translate converts text from the given language into the pipeline
// language. Disabled languages return the text unchanged.
func (t *Translator) Translate(ctx context.Context, text, languageCode string) (string, error) {
	if !t.Enabled(languageCode) {
		return text, nil
	}

	payload := translateRequest{
		Text:    []string{text},
		ModelID: languageCode + "-" + pipelineLanguage,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("translate: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("translate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("apikey", t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: call %s: %w", t.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate: %s returned status %d", t.endpoint, resp.StatusCode)
	}

	var decoded translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("translate: decode response: %w", err)
	}
	if len(decoded.Translations) == 0 {
		return "", fmt.Errorf("translate: %s returned no translations", t.endpoint)
	}
	return decoded.Translations[0].Translation, nil
}
