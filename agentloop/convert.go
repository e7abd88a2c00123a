package agentloop

import (
	"encoding/json"

	"github.com/attractor-labs/skillrunner/agent"
	"github.com/attractor-labs/skillrunner/unifiedllm"
)

// toUnifiedMessages projects the agent package's provider-neutral
// history onto unifiedllm's richer content-part Message shape.
func toUnifiedMessages(msgs []agent.LLMMessage) []unifiedllm.Message {
	out := make([]unifiedllm.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case agent.RoleSystem:
			out = append(out, unifiedllm.SystemMessage(m.Content))
		case agent.RoleUser:
			out = append(out, unifiedllm.UserMessage(m.Content))
		case agent.RoleAssistant:
			var parts []unifiedllm.ContentPart
			if m.Content != "" {
				parts = append(parts, unifiedllm.TextPart(m.Content))
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, unifiedllm.ToolCallPart(tc.ID, tc.Name, json.RawMessage(tc.Arguments)))
			}
			out = append(out, unifiedllm.Message{Role: unifiedllm.RoleAssistant, Content: parts})
		case agent.RoleTool:
			out = append(out, unifiedllm.ToolResultMessage(m.ToolCallID, m.Content, false))
		}
	}
	return out
}

// toUnifiedTools projects the tool registry's provider-neutral
// definitions onto unifiedllm's ToolDefinition shape.
func toUnifiedTools(defs []agent.ToolDefinition) []unifiedllm.ToolDefinition {
	out := make([]unifiedllm.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		out = append(out, unifiedllm.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return out
}

// responseToAssistantMessage converts a unifiedllm response message
// into the flat agent.Message the runner accumulates in history.
func responseToAssistantMessage(msg unifiedllm.Message) agent.Message {
	out := agent.Message{Role: agent.RoleAssistant}
	for _, part := range msg.Content {
		switch part.Kind {
		case unifiedllm.ContentText:
			out.Content += part.Text
		case unifiedllm.ContentToolCall:
			if part.ToolCall != nil {
				out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
					ID:        part.ToolCall.ID,
					Name:      part.ToolCall.Name,
					Arguments: string(part.ToolCall.Arguments),
				})
			}
		}
	}
	return out
}
