package context

import "github.com/attractor-labs/skillrunner/agent"

// Config configures a Manager.
type Config struct {
	ContextWindow int
	ReserveTokens int
	// Threshold defaults to 0.9 when zero.
	Threshold float64
}

func (c Config) normalized() Config {
	if c.Threshold == 0 {
		c.Threshold = 0.9
	}
	return c
}

// CompactionReport is the {messages_before, messages_after,
// tokens_before, tokens_after} payload the caller emits as the
// compaction event.
type CompactionReport struct {
	MessagesBefore int
	MessagesAfter  int
	TokensBefore   int
	TokensAfter    int
}

// Strategy compacts a message history under a target token budget. The
// leading system message (if any) is always preserved by the caller of
// Compact via Manager; a Strategy only decides what to do with the
// rest.
type Strategy interface {
	Compact(rest []agent.Message, targetTokens int, estimator Estimator) []agent.Message
}

// Manager estimates tokens, decides when to compact, and delegates the
// mechanics of compaction to a Strategy.
type Manager struct {
	config    Config
	estimator Estimator
	strategy  Strategy
}

func NewManager(config Config, estimator Estimator, strategy Strategy) *Manager {
	if estimator == nil {
		estimator = NewDefaultEstimator()
	}
	if strategy == nil {
		strategy = NewSlidingWindowStrategy()
	}
	return &Manager{config: config.normalized(), estimator: estimator, strategy: strategy}
}

// Estimate exposes the configured estimator to callers that need a raw
// count (e.g. for a compaction report) without going through
// ShouldCompact.
func (m *Manager) Estimate(messages []agent.Message) int {
	return m.estimator.Estimate(messages)
}

// ShouldCompact reports whether estimate(messages) + reserve_tokens is
// at or above context_window * threshold.
func (m *Manager) ShouldCompact(messages []agent.Message) bool {
	estimate := m.estimator.Estimate(messages)
	target := float64(m.config.ContextWindow) * m.config.Threshold
	return float64(estimate+m.config.ReserveTokens) >= target
}

// Compact applies the configured strategy, always preserving a leading
// system message untouched, and returns both the new history and a
// report suitable for the compaction event.
func (m *Manager) Compact(messages []agent.Message) ([]agent.Message, CompactionReport) {
	tokensBefore := m.estimator.Estimate(messages)

	var lead []agent.Message
	rest := messages
	if len(messages) > 0 && messages[0].Role == agent.RoleSystem {
		lead = messages[:1]
		rest = messages[1:]
	}

	targetTokens := int(float64(m.config.ContextWindow)*m.config.Threshold) - m.config.ReserveTokens
	if targetTokens < 0 {
		targetTokens = 0
	}
	leadTokens := m.estimator.Estimate(lead)
	remainingBudget := targetTokens - leadTokens
	if remainingBudget < 0 {
		remainingBudget = 0
	}

	compactedRest := m.strategy.Compact(rest, remainingBudget, m.estimator)

	out := make([]agent.Message, 0, len(lead)+len(compactedRest))
	out = append(out, lead...)
	out = append(out, compactedRest...)

	tokensAfter := m.estimator.Estimate(out)

	return out, CompactionReport{
		MessagesBefore: len(messages),
		MessagesAfter:  len(out),
		TokensBefore:   tokensBefore,
		TokensAfter:    tokensAfter,
	}
}
