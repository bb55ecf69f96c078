package response

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// randomSeed fixes the fallback RNG so replayed conversations select
// the same responses.
const randomSeed = 1024 * 1024

const randomInitScore = 10

// Scorer ranks candidate texts against the chat history. It may return
// the candidates in a different order; scores are aligned to the
// returned order.
type Scorer interface {
	Rank(ctx context.Context, history, candidates []string) ([]string, []float64, error)
}

// RandomScorer is the offline fallback scorer. It shuffles the
// candidates and assigns decreasing scores to the shuffled order.
type RandomScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomScorer() *RandomScorer {
	return &RandomScorer{rng: rand.New(rand.NewSource(randomSeed))}
}

func (s *RandomScorer) Rank(_ context.Context, _ []string, candidates []string) ([]string, []float64, error) {
	shuffled := make([]string, len(candidates))
	copy(shuffled, candidates)
	s.mu.Lock()
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.mu.Unlock()
	scores := make([]float64, len(shuffled))
	for i := range shuffled {
		scores[i] = math.Max(randomInitScore-float64(i)/randomInitScore, 0)
	}
	return shuffled, scores, nil
}

// Selection is the outcome of one selection pass. Texts and Scores are
// the candidates in final penalized order; RawScores carries the
// scorer's original scores aligned to that same order, for audit.
type Selection struct {
	Chosen    *Argument
	Texts     []string
	Scores    []float64
	RawScores []float64
}

// Selector picks one candidate per turn, penalizing phrasings the
// system used recently. The scorer is shared and stateful, so calls to
// it are serialized.
type Selector struct {
	scorer       Scorer
	baseFactor   float64
	cannedFactor float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector builds a selector with the given recency-decay factors
// for repeated base responses and repeated canned-text snippets.
func NewSelector(scorer Scorer, baseFactor, cannedFactor float64) *Selector {
	if scorer == nil {
		panic("response: selector requires a scorer")
	}
	return &Selector{
		scorer:       scorer,
		baseFactor:   baseFactor,
		cannedFactor: cannedFactor,
		rng:          rand.New(rand.NewSource(randomSeed)),
	}
}

// Select ranks the candidates against the chat history and returns the
// top candidate after recency penalties. An empty candidate set yields
// an empty selection; an empty chat history yields a uniform random
// choice with no scoring call.
func (s *Selector) Select(ctx context.Context, candidates []Argument, chatHistory []string, systemHistory []Argument) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, nil
	}
	if len(chatHistory) == 0 {
		s.mu.Lock()
		idx := s.rng.Intn(len(candidates))
		s.mu.Unlock()
		return Selection{Chosen: &candidates[idx]}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	s.mu.Lock()
	rankedTexts, raw, err := s.scorer.Rank(ctx, chatHistory, texts)
	s.mu.Unlock()
	if err != nil {
		return Selection{}, fmt.Errorf("response: score candidates: %w", err)
	}
	if len(rankedTexts) != len(candidates) || len(raw) != len(candidates) {
		return Selection{}, fmt.Errorf("response: scorer returned %d texts and %d scores for %d candidates",
			len(rankedTexts), len(raw), len(candidates))
	}

	// The scorer may signal "lower is better" by returning ascending
	// scores; mirror its direction when re-sorting after penalties.
	descending := len(candidates) < 2 || raw[0] > raw[1]

	ranked := make([]Argument, len(rankedTexts))
	for i, text := range rankedTexts {
		found := false
		for _, c := range candidates {
			if c.Text == text {
				ranked[i] = c
				found = true
				break
			}
		}
		if !found {
			return Selection{}, fmt.Errorf("response: scorer returned unknown candidate %q", text)
		}
	}

	penalized := make([]float64, len(ranked))
	for i, arg := range ranked {
		penalized[i] = s.diminishByRecency(arg, raw[i], systemHistory)
	}

	order := make([]int, len(ranked))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		if descending {
			return penalized[order[i]] > penalized[order[j]]
		}
		return penalized[order[i]] < penalized[order[j]]
	})

	sel := Selection{
		Texts:     make([]string, len(order)),
		Scores:    make([]float64, len(order)),
		RawScores: make([]float64, len(order)),
	}
	for pos, idx := range order {
		sel.Texts[pos] = ranked[idx].Text
		sel.Scores[pos] = penalized[idx]
		sel.RawScores[pos] = raw[idx]
	}
	chosen := ranked[order[0]]
	sel.Chosen = &chosen
	return sel, nil
}

// diminishByRecency compounds a decay penalty for every phrasing
// element of the candidate that appears in the system's prior turns.
// The exponent 5/turnsSince is an opaque tunable carried over from the
// deployed configuration.
func (s *Selector) diminishByRecency(arg Argument, score float64, systemHistory []Argument) float64 {
	n := len(systemHistory)
	if last := lastIndex(systemHistory, func(h Argument) bool {
		return h.BaseResponse == arg.BaseResponse
	}); last > -1 {
		score *= math.Pow(s.baseFactor, 5/float64(n-last))
	}
	for _, ct := range arg.CannedText {
		if ct == "" {
			continue
		}
		snippet := ct
		if last := lastIndex(systemHistory, func(h Argument) bool {
			return h.CannedText[0] == snippet || h.CannedText[1] == snippet
		}); last > -1 {
			score *= math.Pow(s.cannedFactor, 5/float64(n-last))
		}
	}
	return score
}

func lastIndex(history []Argument, match func(Argument) bool) int {
	for i := len(history) - 1; i >= 0; i-- {
		if match(history[i]) {
			return i
		}
	}
	return -1
}
