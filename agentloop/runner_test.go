package agentloop

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attractor-labs/skillrunner/adapter"
	"github.com/attractor-labs/skillrunner/agent"
	agentcontext "github.com/attractor-labs/skillrunner/context"
	"github.com/attractor-labs/skillrunner/eventbus"
	"github.com/attractor-labs/skillrunner/execkit"
	"github.com/attractor-labs/skillrunner/unifiedllm"
)

func newTestRunner(t *testing.T, script []adapter.Step) (*AgentRunner, *adapter.Stub) {
	t.Helper()
	stub := adapter.NewStub("stub", script)
	tools := agent.NewToolRegistry()
	deps := Deps{
		Adapter:    stub,
		Tools:      tools,
		Bus:        eventbus.New(),
		ContextMgr: agentcontext.NewManager(agentcontext.Config{ContextWindow: 200_000}, nil, nil),
		Env:        execkit.NewLocalExecutionEnvironment(t.TempDir()),
	}
	runner := NewAgentRunner(DefaultConfig(), deps, "you are a test agent")
	return runner, stub
}

func TestChat_NoToolCallsReturnsAssistantText(t *testing.T) {
	runner, _ := newTestRunner(t, []adapter.Step{{Text: "hello there"}})

	reply, err := runner.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply.Content)
}

func TestChat_ExecutesToolCallSequentiallyThenFinishes(t *testing.T) {
	argsJSON, _ := json.Marshal(map[string]string{"command": "echo hi"})
	runner, _ := newTestRunner(t, []adapter.Step{
		{ToolCalls: []unifiedllm.ToolCall{{ID: "call-1", Name: "execute", Arguments: argsJSON}}},
		{Text: "done"},
	})

	reply, err := runner.Chat(context.Background(), "run a command")
	require.NoError(t, err)
	assert.Equal(t, "done", reply.Content)

	history := runner.History()
	var sawToolResult bool
	for _, m := range history {
		if m.Role == agent.RoleTool {
			sawToolResult = true
			assert.Equal(t, "call-1", m.ToolCallID)
		}
	}
	assert.True(t, sawToolResult, "expected a tool-role message in history")
}

func TestChat_RejectsConcurrentCallsWithBusy(t *testing.T) {
	runner, _ := newTestRunner(t, []adapter.Step{{Text: "ok"}})

	runner.mu.Lock()
	runner.busy = true
	runner.mu.Unlock()

	_, err := runner.Chat(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestChat_UnknownToolProducesSyntheticErrorNotFatal(t *testing.T) {
	argsJSON, _ := json.Marshal(map[string]string{})
	runner, _ := newTestRunner(t, []adapter.Step{
		{ToolCalls: []unifiedllm.ToolCall{{ID: "call-1", Name: "does_not_exist", Arguments: argsJSON}}},
		{Text: "recovered"},
	})

	reply, err := runner.Chat(context.Background(), "call a bad tool")
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply.Content)
}

func TestChat_MaxTurnsStopsTheLoop(t *testing.T) {
	argsJSON, _ := json.Marshal(map[string]string{"command": "true"})
	step := adapter.Step{ToolCalls: []unifiedllm.ToolCall{{ID: "call-1", Name: "execute", Arguments: argsJSON}}}
	script := make([]adapter.Step, 0, 10)
	for i := 0; i < 10; i++ {
		script = append(script, step)
	}

	stub := adapter.NewStub("stub", script)
	tools := agent.NewToolRegistry()
	deps := Deps{
		Adapter:    stub,
		Tools:      tools,
		Bus:        eventbus.New(),
		ContextMgr: agentcontext.NewManager(agentcontext.Config{ContextWindow: 200_000}, nil, nil),
		Env:        execkit.NewLocalExecutionEnvironment(t.TempDir()),
	}
	cfg := DefaultConfig()
	cfg.MaxTurns = 2
	runner := NewAgentRunner(cfg, deps, "")

	_, err := runner.Chat(context.Background(), "loop forever")
	require.NoError(t, err)

	turns := 0
	for _, m := range runner.History() {
		if m.Role == agent.RoleAssistant {
			turns++
		}
	}
	assert.LessOrEqual(t, turns, 2)
}

func TestChat_AbortTerminatesRunningSubprocessPromptly(t *testing.T) {
	argsJSON, _ := json.Marshal(map[string]interface{}{"command": "sleep 30", "timeout": 60_000})
	runner, _ := newTestRunner(t, []adapter.Step{
		{ToolCalls: []unifiedllm.ToolCall{{ID: "call-1", Name: "execute", Arguments: argsJSON}}},
	})

	done := make(chan struct{})
	go func() {
		runner.Chat(context.Background(), "run a long command")
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	runner.Abort()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Chat did not return within 5s of Abort; subprocess was not terminated promptly")
	}

	var sawAborted bool
	for _, m := range runner.History() {
		if m.Role == agent.RoleTool && strings.Contains(m.Content, "aborted") {
			sawAborted = true
		}
	}
	assert.True(t, sawAborted, "expected the tool result to reflect the aborted command")
}

func TestChat_NonCanonicalStreamEventsReachDebugCallback(t *testing.T) {
	stub := adapter.NewStub("stub", []adapter.Step{{Text: "hello there"}})
	var seen []unifiedllm.StreamEventType
	var mu sync.Mutex
	deps := Deps{
		Adapter:    stub,
		Tools:      agent.NewToolRegistry(),
		Bus:        eventbus.New(),
		ContextMgr: agentcontext.NewManager(agentcontext.Config{ContextWindow: 200_000}, nil, nil),
		Env:        execkit.NewLocalExecutionEnvironment(t.TempDir()),
		OnDebugEvent: func(ev unifiedllm.StreamEvent) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, ev.Type)
		},
	}
	runner := NewAgentRunner(DefaultConfig(), deps, "you are a test agent")

	_, err := runner.Chat(context.Background(), "hi")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, unifiedllm.StreamStart)
	assert.NotContains(t, seen, unifiedllm.TextStart)
	assert.NotContains(t, seen, unifiedllm.TextEnd)
	for _, ty := range seen {
		assert.NotEqual(t, unifiedllm.TextDelta, ty, "canonical events must not reach the debug callback")
	}
}

func TestDispatchToolCalls_SteeringCancelsRemainingCallsInTurn(t *testing.T) {
	runner, _ := newTestRunner(t, nil)
	runner.tools.Register(agent.RegisteredTool{
		Definition: agent.ToolDefinition{Name: "noop"},
		Executor: func(ctx context.Context, raw json.RawMessage, env execkit.ExecutionEnvironment, abort execkit.AbortSignal) (string, error) {
			runner.Steer("stop and reconsider")
			return "ok", nil
		},
	})

	calls := []agent.ToolCall{
		{ID: "1", Name: "noop", Arguments: "{}"},
		{ID: "2", Name: "noop", Arguments: "{}"},
	}
	steered := runner.dispatchToolCalls(context.Background(), calls)
	assert.True(t, steered)

	history := runner.History()
	toolResults := 0
	for _, m := range history {
		if m.Role == agent.RoleTool {
			toolResults++
		}
	}
	assert.Equal(t, 1, toolResults, "the second call must be cancelled once steering arrives")
}
