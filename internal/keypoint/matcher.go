// Package keypoint ranks known concern keypoints against user utterances
// via an external scoring oracle, and maps keypoints to and from their
// question-phrased forms shown in feedback menus.
package keypoint

import (
	"context"
	"fmt"
	"sort"
)

// Scorer is the external keypoint-matching oracle: one score vector per
// utterance, aligned to the keypoint index.
type Scorer interface {
	Scores(ctx context.Context, utterances []string, disableCache bool) ([][]float64, error)
}

// Matcher ranks the keypoint index against a user utterance.
type Matcher struct {
	scorer     Scorer
	index      []string
	confidence float64
}

// NewMatcher creates a matcher over the given keypoint index. The
// confidence threshold gates whether a top match may drive the response
// pipeline.
func NewMatcher(scorer Scorer, index []string, confidence float64) *Matcher {
	return &Matcher{scorer: scorer, index: index, confidence: confidence}
}

// IsConfident reports whether a match score strictly exceeds the
// configured threshold.
func (m *Matcher) IsConfident(score float64) bool {
	return score > m.confidence
}

// TopK returns the k best-matching keypoints for the utterance with their
// scores, best first. When allowed is non-nil, scores of keypoints outside
// the set are zeroed before ranking so that keypoints missing from the
// active knowledge base can never win. Ties keep the oracle's index order.
func (m *Matcher) TopK(ctx context.Context, utterance string, k int, disableCache bool, allowed map[string]struct{}) ([]string, []float64, error) {
	vectors, err := m.scorer.Scores(ctx, []string{utterance}, disableCache)
	if err != nil {
		return nil, nil, err
	}
	scores := vectors[0]
	if len(scores) != len(m.index) {
		return nil, nil, fmt.Errorf("keypoint: oracle returned %d scores for an index of %d keypoints", len(scores), len(m.index))
	}

	ranked := make([]int, len(scores))
	for i := range ranked {
		ranked[i] = i
	}
	if allowed != nil {
		scores = append([]float64(nil), scores...)
		for i, kp := range m.index {
			if _, ok := allowed[kp]; !ok {
				scores[i] = 0
			}
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return scores[ranked[a]] > scores[ranked[b]]
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	topKPs := make([]string, k)
	topScores := make([]float64, k)
	for i := 0; i < k; i++ {
		topKPs[i] = m.index[ranked[i]]
		topScores[i] = scores[ranked[i]]
	}
	return topKPs, topScores, nil
}
