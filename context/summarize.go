package context

import "github.com/attractor-labs/skillrunner/agent"

// Summarizer produces a single system-role summary message standing in
// for the given dropped messages. If it calls back into the LLM
// adapter to produce that summary, the caller must route that call
// outside the agent loop's normal turn path so it cannot re-enter
// compaction (a summarizing call summarizing itself would recurse
// forever).
type Summarizer func(dropped []agent.Message) (agent.Message, error)

// SummarizingStrategy replaces the oldest messages needed to fit the
// budget with a single summary message produced by Summarizer, rather
// than discarding them outright.
type SummarizingStrategy struct {
	summarize Summarizer
}

func NewSummarizingStrategy(summarize Summarizer) *SummarizingStrategy {
	return &SummarizingStrategy{summarize: summarize}
}

func (s *SummarizingStrategy) Compact(rest []agent.Message, targetTokens int, estimator Estimator) []agent.Message {
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

	dropped := rest[:dropCount]
	kept := rest[dropCount:]
	if len(dropped) == 0 {
		return append([]agent.Message(nil), kept...)
	}

	summary, err := s.summarize(dropped)
	if err != nil {
		// Fall back to plain dropping rather than failing the turn.
		return append([]agent.Message(nil), kept...)
	}
	summary.Role = agent.RoleSystem

	out := make([]agent.Message, 0, 1+len(kept))
	out = append(out, summary)
	out = append(out, kept...)
	return out
}
