package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attractor-labs/skillrunner/unifiedllm"
)

func TestStub_CompletePlaysBackScriptInOrder(t *testing.T) {
	s := NewStub("stub", []Step{
		{Text: "first"},
		{Text: "second"},
	})

	resp1, err := s.Complete(context.Background(), unifiedllm.Request{Model: "stub-model"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp1.Text())

	resp2, err := s.Complete(context.Background(), unifiedllm.Request{Model: "stub-model"})
	require.NoError(t, err)
	assert.Equal(t, "second", resp2.Text())
}

func TestStub_CompleteRepeatsFinalStepOnceExhausted(t *testing.T) {
	s := NewStub("stub", []Step{{Text: "only"}})

	_, err := s.Complete(context.Background(), unifiedllm.Request{})
	require.NoError(t, err)
	resp, err := s.Complete(context.Background(), unifiedllm.Request{})
	require.NoError(t, err)
	assert.Equal(t, "only", resp.Text())
}

func TestStub_StreamEmitsToolCallLifecycle(t *testing.T) {
	s := NewStub("stub", []Step{
		{ToolCalls: []unifiedllm.ToolCall{{ID: "call-1", Name: "read", Arguments: jsonArgs(map[string]string{"path": "a.go"})}}},
	})

	ch, err := s.Stream(context.Background(), unifiedllm.Request{})
	require.NoError(t, err)

	var sawStart, sawDelta, sawEnd, sawFinish bool
	for ev := range ch {
		switch ev.Type {
		case unifiedllm.ToolCallStart:
			sawStart = true
		case unifiedllm.ToolCallDelta:
			sawDelta = true
		case unifiedllm.ToolCallEnd:
			sawEnd = true
			assert.Equal(t, "read", ev.ToolCall.Name)
		case unifiedllm.StreamFinish:
			sawFinish = true
			assert.Equal(t, "tool_calls", ev.Response.FinishReason.Reason)
		}
	}
	assert.True(t, sawStart)
	assert.True(t, sawDelta)
	assert.True(t, sawEnd)
	assert.True(t, sawFinish)
}

func TestStub_NameReturnsConfiguredProvider(t *testing.T) {
	s := NewStub("test-provider", nil)
	assert.Equal(t, "test-provider", s.Name())
}
