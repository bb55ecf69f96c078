// Package scoring holds the HTTP clients for the external scoring
// oracles: the keypoint matcher, the intent classifier, and the response
// candidate scorer. All oracles share the same transport conventions:
// JSON request/response, scores aligned to input order, and a
// "Pragma: no-cache" header to bypass any result cache the oracle keeps.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OracleError indicates the external oracle could not be reached or
// returned a non-200 response. It is fatal for the current request.
type OracleError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *OracleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scoring: oracle call to %s failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("scoring: oracle at %s returned status %d", e.Endpoint, e.Status)
}

func (e *OracleError) Unwrap() error { return e.Err }

// IsOracleError reports whether err originates from an oracle transport
// failure.
func IsOracleError(err error) bool {
	var oe *OracleError
	return errors.As(err, &oe)
}

// Observer receives oracle call latencies. Implemented by the metrics
// package; a nil observer is a no-op.
type Observer interface {
	ObserveOracleCall(oracle string, seconds float64)
}

// Client is the shared HTTP transport for all oracle calls.
type Client struct {
	httpClient *http.Client
	observer   Observer
}

// NewClient creates an oracle client. A nil httpClient gets a default
// with the given timeout.
func NewClient(httpClient *http.Client, timeout time.Duration, observer Observer) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{httpClient: httpClient, observer: observer}
}

// post sends the payload to the endpoint and decodes the JSON response
// into out. When disableCache is set, the request carries a
// "Pragma: no-cache" header.
func (c *Client) post(ctx context.Context, oracle, endpoint string, payload any, disableCache bool, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("scoring: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("scoring: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if disableCache {
		req.Header.Set("Pragma", "no-cache")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.observer != nil {
		c.observer.ObserveOracleCall(oracle, time.Since(start).Seconds())
	}
	if err != nil {
		return &OracleError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &OracleError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &OracleError{Endpoint: endpoint, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
