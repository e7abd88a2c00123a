// Package eventbus implements the lifecycle interception layer: a
// priority-ordered pub/sub bus where handlers for a handful of event
// kinds can block, chain-modify, or short-circuit the agent loop
// instead of only observing it.
package eventbus

import "github.com/attractor-labs/skillrunner/agent"

// Kind is the closed set of lifecycle event names.
type Kind string

const (
	KindAgentStart          Kind = "agent_start"
	KindAgentEnd            Kind = "agent_end"
	KindTurnStart           Kind = "turn_start"
	KindTurnEnd             Kind = "turn_end"
	KindBeforeToolCall      Kind = "before_tool_call"
	KindAfterToolResult     Kind = "after_tool_result"
	KindContextTransform    Kind = "context_transform"
	KindInput               Kind = "input"
	KindToolExecutionUpdate Kind = "tool_execution_update"
	KindSessionStart        Kind = "session_start"
	KindSessionEnd          Kind = "session_end"
	KindModelChange         Kind = "model_change"
	KindCompaction          Kind = "compaction"
)

// FinishReason is the agent_end payload's terminal classification.
type FinishReason string

const (
	FinishComplete  FinishReason = "complete"
	FinishMaxTurns  FinishReason = "max_turns"
	FinishAborted   FinishReason = "aborted"
	FinishError     FinishReason = "error"
)

// Event is the closed tagged union of payloads carried through the
// bus. Only the fields relevant to Kind are populated.
type Event struct {
	Kind Kind

	// RunID identifies which AgentRunner produced this event. A root
	// runner and every runner forked from it share one Bus, so RunID is
	// how a subscriber tells a child's agent_start/turn_start/... apart
	// from its parent's own.
	RunID string

	// agent_start / agent_end / session_start / session_end
	FinishReason FinishReason

	// turn_start / turn_end
	TurnNumber int

	// before_tool_call / after_tool_result / tool_execution_update
	ToolCall   agent.ToolCall
	ToolResult *agent.ToolResult
	OutputChunk string

	// context_transform / compaction
	Messages       []agent.Message
	MessagesBefore int
	MessagesAfter  int
	TokensBefore   int
	TokensAfter    int

	// input
	UserInput string

	// model_change
	PreviousModel string
	NewModel      string
}

// BeforeToolCallResult is returned by a before_tool_call handler.
type BeforeToolCallResult struct {
	Block  bool
	Reason string
}

// AfterToolResultResult is returned by an after_tool_result handler.
type AfterToolResultResult struct {
	Replacement string
	Replaced    bool
}

// ContextTransformResult is returned by a context_transform handler.
type ContextTransformResult struct {
	Messages []agent.Message
	Replaced bool
}

// InputResult is returned by an input handler.
type InputResult struct {
	Handled  bool
	Response string
}
