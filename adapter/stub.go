// Package adapter provides a deterministic test-double implementation
// of unifiedllm.ProviderAdapter. A real provider backend implements the
// same interface against its own SDK and is handed to agentloop through
// Deps.Adapter; this package exists so agentloop's own tests, and any
// host embedding the runner in an offline harness, can drive a full
// turn without network access or API keys.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/attractor-labs/skillrunner/unifiedllm"
)

// Step is one scripted response the stub adapter returns in sequence.
// A step with ToolCalls set produces an assistant message proposing
// those calls; a step with only Text produces a finishing text
// response.
type Step struct {
	Text      string
	ToolCalls []unifiedllm.ToolCall
}

// Stub is a scripted ProviderAdapter: each call to Complete or Stream
// consumes the next Step in Script, replaying steps in order. Once the
// script is exhausted it keeps returning the final step, so a test
// that under-counts turns doesn't panic on an empty slice.
type Stub struct {
	mu     sync.Mutex
	name   string
	Script []Step
	cursor int
}

// NewStub constructs a stub adapter under provider name, playing back
// script in order.
func NewStub(name string, script []Step) *Stub {
	return &Stub{name: name, Script: script}
}

func (s *Stub) Name() string { return s.name }

func (s *Stub) nextStep() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Script) == 0 {
		return Step{Text: ""}
	}
	idx := s.cursor
	if idx >= len(s.Script) {
		idx = len(s.Script) - 1
	} else {
		s.cursor++
	}
	return s.Script[idx]
}

func stepToMessage(step Step) unifiedllm.Message {
	var parts []unifiedllm.ContentPart
	if step.Text != "" {
		parts = append(parts, unifiedllm.TextPart(step.Text))
	}
	for _, tc := range step.ToolCalls {
		parts = append(parts, unifiedllm.ToolCallPart(tc.ID, tc.Name, tc.Arguments))
	}
	return unifiedllm.Message{Role: unifiedllm.RoleAssistant, Content: parts}
}

// Complete returns the next scripted step as a full response.
func (s *Stub) Complete(ctx context.Context, req unifiedllm.Request) (*unifiedllm.Response, error) {
	step := s.nextStep()
	finish := unifiedllm.FinishReason{Reason: "stop"}
	if len(step.ToolCalls) > 0 {
		finish = unifiedllm.FinishReason{Reason: "tool_calls"}
	}
	return &unifiedllm.Response{
		ID:           fmt.Sprintf("stub-%d", s.cursor),
		Model:        req.Model,
		Provider:     s.name,
		Message:      stepToMessage(step),
		FinishReason: finish,
	}, nil
}

// Stream replays the next scripted step as a tool-call or text stream
// followed by a finish event carrying the full response.
func (s *Stub) Stream(ctx context.Context, req unifiedllm.Request) (<-chan unifiedllm.StreamEvent, error) {
	step := s.nextStep()
	ch := make(chan unifiedllm.StreamEvent, 8+len(step.ToolCalls)*3)

	go func() {
		defer close(ch)
		ch <- unifiedllm.StreamEvent{Type: unifiedllm.StreamStart}

		if step.Text != "" {
			ch <- unifiedllm.StreamEvent{Type: unifiedllm.TextStart}
			ch <- unifiedllm.StreamEvent{Type: unifiedllm.TextDelta, Delta: step.Text}
			ch <- unifiedllm.StreamEvent{Type: unifiedllm.TextEnd}
		}

		for _, tc := range step.ToolCalls {
			select {
			case <-ctx.Done():
				ch <- unifiedllm.StreamEvent{Type: unifiedllm.StreamError, Error: ctx.Err()}
				return
			default:
			}
			ch <- unifiedllm.StreamEvent{Type: unifiedllm.ToolCallStart, ToolCall: &unifiedllm.ToolCall{ID: tc.ID, Name: tc.Name}}
			ch <- unifiedllm.StreamEvent{Type: unifiedllm.ToolCallDelta, ToolCall: &unifiedllm.ToolCall{ID: tc.ID, Arguments: tc.Arguments}}
			ch <- unifiedllm.StreamEvent{Type: unifiedllm.ToolCallEnd, ToolCall: &unifiedllm.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}}
		}

		finish := unifiedllm.FinishReason{Reason: "stop"}
		if len(step.ToolCalls) > 0 {
			finish = unifiedllm.FinishReason{Reason: "tool_calls"}
		}
		ch <- unifiedllm.StreamEvent{
			Type: unifiedllm.StreamFinish,
			Response: &unifiedllm.Response{
				Model:        req.Model,
				Provider:     s.name,
				Message:      stepToMessage(step),
				FinishReason: finish,
			},
		}
	}()

	return ch, nil
}

var _ unifiedllm.ProviderAdapter = (*Stub)(nil)

// jsonArgs is a small convenience for tests constructing Step.ToolCalls
// without hand-marshalling argument JSON at every call site.
func jsonArgs(v interface{}) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}
