package agent

// StreamEventKind is the closed set of outward stream-event kinds a
// runner emits while processing a turn.
type StreamEventKind string

const (
	EventTextStart      StreamEventKind = "text_start"
	EventTextDelta      StreamEventKind = "text_delta"
	EventTextEnd        StreamEventKind = "text_end"
	EventThinkingStart  StreamEventKind = "thinking_start"
	EventThinkingDelta  StreamEventKind = "thinking_delta"
	EventThinkingEnd    StreamEventKind = "thinking_end"
	EventToolCallStart  StreamEventKind = "tool_call_start"
	EventToolCallDelta  StreamEventKind = "tool_call_delta"
	EventToolCallEnd    StreamEventKind = "tool_call_end"
	EventToolResult     StreamEventKind = "tool_result"
	EventTurnStart      StreamEventKind = "turn_start"
	EventTurnEnd        StreamEventKind = "turn_end"
	EventDone           StreamEventKind = "done"
	EventError          StreamEventKind = "error"
)

// StreamEvent is the tagged union carried over the outward stream. Only
// the fields relevant to Kind are populated; the rest are zero values.
type StreamEvent struct {
	Kind       StreamEventKind
	Content    string
	ToolName   string
	ToolCallID string
	ArgsDelta  string
	Error      string

	// ChildID tags events produced by a forked child run so subscribers
	// can distinguish them from the parent's own stream.
	ChildID string
}

// WireForm is the {type, content?, tool_name?, tool_call_id?, args_delta?,
// error?} JSON shape servers re-emit to clients (e.g. over SSE).
type WireForm struct {
	Type       string `json:"type"`
	Content    string `json:"content,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	ArgsDelta  string `json:"args_delta,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ToWire projects a StreamEvent into its JSON wire form.
func (e StreamEvent) ToWire() WireForm {
	return WireForm{
		Type:       string(e.Kind),
		Content:    e.Content,
		ToolName:   e.ToolName,
		ToolCallID: e.ToolCallID,
		ArgsDelta:  e.ArgsDelta,
		Error:      e.Error,
	}
}

// DoneSentinel is the literal terminator a server writes after the last
// StreamEvent on an SSE connection.
const DoneSentinel = "[DONE]"
