package scoring

import (
	"context"
	"fmt"
)

// KeypointScorer scores utterances against the full keypoint index. The
// oracle returns, for each submitted utterance, one score per known
// keypoint in index order.
type KeypointScorer struct {
	client    *Client
	endpoint  string
	batchSize int
}

// NewKeypointScorer creates a keypoint oracle client.
func NewKeypointScorer(client *Client, endpoint string, batchSize int) *KeypointScorer {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &KeypointScorer{client: client, endpoint: endpoint, batchSize: batchSize}
}

// Scores returns one score vector per utterance, aligned to the keypoint
// index. Batches are submitted in input order and results concatenated.
func (s *KeypointScorer) Scores(ctx context.Context, utterances []string, disableCache bool) ([][]float64, error) {
	pairs := make([][]string, len(utterances))
	for i, u := range utterances {
		pairs[i] = []string{u}
	}

	var all [][]float64
	for begin := 0; begin < len(pairs); begin += s.batchSize {
		end := begin + s.batchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		var batchScores [][]float64
		payload := map[string]any{"pairs": pairs[begin:end]}
		if err := s.client.post(ctx, "kp_matching", s.endpoint, payload, disableCache, &batchScores); err != nil {
			return nil, err
		}
		all = append(all, batchScores...)
	}

	if len(all) != len(utterances) {
		return nil, fmt.Errorf("scoring: keypoint oracle returned %d score vectors for %d utterances", len(all), len(utterances))
	}
	return all, nil
}

// IntentScorer queries the external intent classification oracle.
type IntentScorer struct {
	client   *Client
	endpoint string
}

// NewIntentScorer creates an intent oracle client.
func NewIntentScorer(client *Client, endpoint string) *IntentScorer {
	return &IntentScorer{client: client, endpoint: endpoint}
}

type intentResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Classify returns candidate intent labels with their scores, best first.
func (s *IntentScorer) Classify(ctx context.Context, text string, disableCache bool) ([]string, []float64, error) {
	var resp intentResponse
	payload := map[string]any{"text": text}
	if err := s.client.post(ctx, "intent_classifier", s.endpoint, payload, disableCache, &resp); err != nil {
		return nil, nil, err
	}
	if len(resp.Labels) == 0 || len(resp.Labels) != len(resp.Scores) {
		return nil, nil, fmt.Errorf("scoring: intent oracle returned %d labels and %d scores", len(resp.Labels), len(resp.Scores))
	}
	return resp.Labels, resp.Scores, nil
}

// ResponseScorer queries the external response-ranking oracle with the
// chat history and the candidate texts.
type ResponseScorer struct {
	client   *Client
	endpoint string
}

// NewResponseScorer creates a response scorer client.
func NewResponseScorer(client *Client, endpoint string) *ResponseScorer {
	return &ResponseScorer{client: client, endpoint: endpoint}
}

type rankResponse struct {
	TextCandidates []string  `json:"text_candidates"`
	CandScores     []float64 `json:"cand_scores"`
}

// Rank returns the candidate texts in the oracle's preference order with
// their raw scores.
func (s *ResponseScorer) Rank(ctx context.Context, history []string, candidates []string) ([]string, []float64, error) {
	var resp rankResponse
	payload := map[string]any{"history": history, "candidates": candidates}
	if err := s.client.post(ctx, "response_scorer", s.endpoint, payload, false, &resp); err != nil {
		return nil, nil, err
	}
	if len(resp.TextCandidates) != len(resp.CandScores) {
		return nil, nil, fmt.Errorf("scoring: response oracle returned %d candidates and %d scores", len(resp.TextCandidates), len(resp.CandScores))
	}
	return resp.TextCandidates, resp.CandScores, nil
}
