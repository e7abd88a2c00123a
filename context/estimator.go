// Package context implements token-budget-aware compaction of message
// history before each model call: estimation, a should_compact gate,
// and pluggable compaction strategies.
package context

import (
	"sync"

	"github.com/attractor-labs/skillrunner/agent"
	"github.com/pkoukk/tiktoken-go"
)

// Estimator produces an approximate token count for a slice of
// messages. It need not agree with any particular provider's own
// tokenizer — it only needs to be used consistently for the
// should_compact decision.
type Estimator interface {
	Estimate(messages []agent.Message) int
}

// heuristicEstimator falls back to a simple bytes/4 approximation, used
// when a real BPE encoding cannot be loaded (e.g. no network access to
// fetch the tiktoken vocabulary on first use).
type heuristicEstimator struct{}

func (heuristicEstimator) Estimate(messages []agent.Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
		for _, tc := range m.ToolCalls {
			total += len(tc.Name) + len(tc.Arguments)
		}
	}
	return total / 4
}

// tiktokenEstimator counts tokens with a real BPE encoding.
type tiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

func (t *tiktokenEstimator) Estimate(messages []agent.Message) int {
	total := 0
	for _, m := range messages {
		total += len(t.enc.Encode(m.Content, nil, nil))
		for _, tc := range m.ToolCalls {
			total += len(t.enc.Encode(tc.Name+tc.Arguments, nil, nil))
		}
	}
	return total
}

var (
	defaultEstimatorOnce sync.Once
	defaultEstimator     Estimator
)

// NewDefaultEstimator returns a tiktoken-backed estimator using the
// cl100k_base encoding, falling back to a heuristic estimator if the
// encoding cannot be loaded.
func NewDefaultEstimator() Estimator {
	defaultEstimatorOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			defaultEstimator = heuristicEstimator{}
			return
		}
		defaultEstimator = &tiktokenEstimator{enc: enc}
	})
	return defaultEstimator
}

// NewHeuristicEstimator returns the dependency-free bytes/4 estimator
// directly, bypassing tiktoken entirely.
func NewHeuristicEstimator() Estimator {
	return heuristicEstimator{}
}
