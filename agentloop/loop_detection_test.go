package agentloop

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/attractor-labs/skillrunner/agent"
)

func assistantWithCall(name, args string) agent.Message {
	return agent.NewAssistantMessage("", []agent.ToolCall{{ID: "x", Name: name, Arguments: args}})
}

func TestDetectToolLoop_DetectsRepeatingSingleCall(t *testing.T) {
	history := []agent.Message{
		assistantWithCall("read", `{"path":"a.go"}`),
		assistantWithCall("read", `{"path":"a.go"}`),
		assistantWithCall("read", `{"path":"a.go"}`),
	}
	assert.True(t, DetectToolLoop(history, 3))
}

func TestDetectToolLoop_DetectsRepeatingPairPattern(t *testing.T) {
	history := []agent.Message{
		assistantWithCall("read", `{"path":"a.go"}`),
		assistantWithCall("execute", `{"command":"ls"}`),
		assistantWithCall("read", `{"path":"a.go"}`),
		assistantWithCall("execute", `{"command":"ls"}`),
	}
	assert.True(t, DetectToolLoop(history, 4))
}

func TestDetectToolLoop_NoFalsePositiveOnDistinctCalls(t *testing.T) {
	history := []agent.Message{
		assistantWithCall("read", `{"path":"a.go"}`),
		assistantWithCall("read", `{"path":"b.go"}`),
		assistantWithCall("read", `{"path":"c.go"}`),
	}
	assert.False(t, DetectToolLoop(history, 3))
}

func TestDetectToolLoop_ShortHistoryNeverLoops(t *testing.T) {
	history := []agent.Message{assistantWithCall("read", `{"path":"a.go"}`)}
	assert.False(t, DetectToolLoop(history, 3))
}
