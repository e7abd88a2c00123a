// Package agent holds the data model shared between the skill runtime,
// the tool execution runtime, and the agent loop: messages, tool calls,
// and the outward stream-event wire form.
package agent

// Role identifies who authored a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleThinking  Role = "thinking"
)

// ToolCall is a model-proposed invocation of a registered tool. Arguments
// are carried as a raw JSON string, matching the wire form the adapter
// contract produces incrementally via tool-call argument deltas.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is the single flat conversation-turn record the agent loop
// accumulates in history. Role=thinking messages are UI-only and are
// filtered out of any LLMMessage projection.
type Message struct {
	Role       Role
	Content    string
	Name       string
	ToolCallID string
	ToolCalls  []ToolCall

	// Metadata is agent-only bookkeeping (e.g. which skill produced this
	// message, which fork child it came from). It is never sent to the LLM.
	Metadata map[string]string
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string, toolCalls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: toolCalls}
}

func NewToolResultMessage(toolCallID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, Name: name, ToolCallID: toolCallID}
}

func NewThinkingMessage(content string) Message {
	return Message{Role: RoleThinking, Content: content}
}

// HasToolCalls reports whether this message carries any pending tool calls.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// Clone returns a deep-enough copy safe to hand to a caller that might
// mutate slices or maps.
func (m Message) Clone() Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	if m.Metadata != nil {
		out.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// LLMMessage is the strict provider-compatible subset of Message: only
// system/user/assistant/tool roles, with no agent-only metadata attached.
type LLMMessage struct {
	Role       Role
	Content    string
	Name       string
	ToolCallID string
	ToolCalls  []ToolCall
}

// ProjectToLLM filters a history to the provider-compatible subset: drops
// thinking-role messages and strips agent-only metadata from the rest.
func ProjectToLLM(history []Message) []LLMMessage {
	out := make([]LLMMessage, 0, len(history))
	for _, m := range history {
		if m.Role == RoleThinking {
			continue
		}
		out = append(out, LLMMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
			ToolCalls:  m.ToolCalls,
		})
	}
	return out
}

// TextContent returns the message's plain text content, used by
// approximate token estimation and by history-summarisation.
func (m Message) TextContent() string {
	return m.Content
}
