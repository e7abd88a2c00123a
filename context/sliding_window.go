package context

import "github.com/attractor-labs/skillrunner/agent"

// SlidingWindowStrategy drops the oldest non-system messages until the
// remainder fits the budget, preserving tool-call/tool-result pairing:
// if a tool-call message is dropped, every tool-result message
// matching one of its call ids is dropped too, and vice versa.
type SlidingWindowStrategy struct{}

func NewSlidingWindowStrategy() *SlidingWindowStrategy {
	return &SlidingWindowStrategy{}
}

func (s *SlidingWindowStrategy) Compact(rest []agent.Message, targetTokens int, estimator Estimator) []agent.Message {
	if estimator.Estimate(rest) <= targetTokens {
		return append([]agent.Message(nil), rest...)
	}

	pending := map[string]bool{}
	dropCount := 0
	for dropCount < len(rest) {
		msg := rest[dropCount]
		dropCount++

		for _, tc := range msg.ToolCalls {
			pending[tc.ID] = true
		}
		if msg.Role == agent.RoleTool && msg.ToolCallID != "" {
			delete(pending, msg.ToolCallID)
		}

		if len(pending) == 0 && estimator.Estimate(rest[dropCount:]) <= targetTokens {
			break
		}
	}

	return append([]agent.Message(nil), rest[dropCount:]...)
}
