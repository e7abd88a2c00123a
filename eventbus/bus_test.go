package eventbus

import (
	"errors"
	"testing"

	"github.com/attractor-labs/skillrunner/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOn_PriorityOrderingWithTieByRegistration(t *testing.T) {
	bus := New()
	var order []string

	bus.On(KindTurnStart, func(e Event) (Response, error) {
		order = append(order, "low")
		return Response{}, nil
	}, 1, "test")
	bus.On(KindTurnStart, func(e Event) (Response, error) {
		order = append(order, "high")
		return Response{}, nil
	}, 10, "test")
	bus.On(KindTurnStart, func(e Event) (Response, error) {
		order = append(order, "mid")
		return Response{}, nil
	}, 5, "test")

	bus.EmitObservational(Event{Kind: KindTurnStart})

	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestEmitBeforeToolCall_BlockHaltsButAllHandlersStillObserve(t *testing.T) {
	bus := New()
	observed := 0

	bus.On(KindBeforeToolCall, func(e Event) (Response, error) {
		observed++
		return Response{BeforeToolCall: &BeforeToolCallResult{Block: true, Reason: "dangerous"}}, nil
	}, 10, "guard")
	bus.On(KindBeforeToolCall, func(e Event) (Response, error) {
		observed++
		return Response{}, nil
	}, 1, "logger")

	result := bus.EmitBeforeToolCall(Event{Kind: KindBeforeToolCall, ToolCall: agent.ToolCall{Name: "execute"}})

	assert.True(t, result.Block)
	assert.Equal(t, "dangerous", result.Reason)
	assert.Equal(t, 2, observed)
}

func TestEmitBeforeToolCall_NoBlockersPassesThrough(t *testing.T) {
	bus := New()
	result := bus.EmitBeforeToolCall(Event{ToolCall: agent.ToolCall{Name: "read"}})
	assert.False(t, result.Block)
}

func TestEmitAfterToolResult_ChainsReplacements(t *testing.T) {
	bus := New()
	bus.On(KindAfterToolResult, func(e Event) (Response, error) {
		return Response{AfterToolResult: &AfterToolResultResult{Replaced: true, Replacement: e.ToolResult.Content + "-a"}}, nil
	}, 10, "one")
	bus.On(KindAfterToolResult, func(e Event) (Response, error) {
		return Response{AfterToolResult: &AfterToolResultResult{Replaced: true, Replacement: e.ToolResult.Content + "-b"}}, nil
	}, 5, "two")

	result := bus.EmitAfterToolResult(Event{ToolResult: &agent.ToolResult{Content: "orig"}})
	assert.Equal(t, "orig-a-b", result)
}

func TestEmitContextTransform_ChainsMessageListReplacement(t *testing.T) {
	bus := New()
	bus.On(KindContextTransform, func(e Event) (Response, error) {
		msgs := append([]agent.Message(nil), e.Messages...)
		msgs = append(msgs, agent.NewSystemMessage("injected"))
		return Response{ContextTransform: &ContextTransformResult{Replaced: true, Messages: msgs}}, nil
	}, 1, "injector")

	out := bus.EmitContextTransform(Event{Messages: []agent.Message{agent.NewUserMessage("hi")}})
	require.Len(t, out, 2)
	assert.Equal(t, "injected", out[1].Content)
}

func TestEmitInput_ShortCircuitsAndSkipsDownstream(t *testing.T) {
	bus := New()
	downstreamCalled := false

	bus.On(KindInput, func(e Event) (Response, error) {
		return Response{Input: &InputResult{Handled: true, Response: "handled early"}}, nil
	}, 10, "first")
	bus.On(KindInput, func(e Event) (Response, error) {
		downstreamCalled = true
		return Response{}, nil
	}, 1, "second")

	result := bus.EmitInput(Event{UserInput: "/foo"})
	assert.True(t, result.Handled)
	assert.Equal(t, "handled early", result.Response)
	assert.False(t, downstreamCalled)
}

func TestHandlerPanic_IsCaughtAndSwallowed(t *testing.T) {
	bus := New()
	bus.On(KindTurnStart, func(e Event) (Response, error) {
		panic("boom")
	}, 1, "flaky")

	assert.NotPanics(t, func() {
		bus.EmitObservational(Event{Kind: KindTurnStart})
	})
}

func TestHandlerError_IsSwallowedNotPropagated(t *testing.T) {
	bus := New()
	bus.On(KindTurnStart, func(e Event) (Response, error) {
		return Response{}, errors.New("boom")
	}, 1, "flaky")

	assert.NotPanics(t, func() {
		bus.EmitObservational(Event{Kind: KindTurnStart})
	})
}

func TestUnsubscribeSource_RemovesAllHandlersUnderTag(t *testing.T) {
	bus := New()
	called := false
	bus.On(KindTurnStart, func(e Event) (Response, error) {
		called = true
		return Response{}, nil
	}, 1, "skill:foo")
	bus.On(KindTurnEnd, func(e Event) (Response, error) {
		called = true
		return Response{}, nil
	}, 1, "skill:foo")

	bus.UnsubscribeSource("skill:foo")

	bus.EmitObservational(Event{Kind: KindTurnStart})
	bus.EmitObservational(Event{Kind: KindTurnEnd})
	assert.False(t, called)
}

func TestOff_RemovesOnlyThatSubscription(t *testing.T) {
	bus := New()
	calledA, calledB := false, false
	subA := bus.On(KindTurnStart, func(e Event) (Response, error) {
		calledA = true
		return Response{}, nil
	}, 1, "a")
	bus.On(KindTurnStart, func(e Event) (Response, error) {
		calledB = true
		return Response{}, nil
	}, 1, "b")

	bus.Off(subA)
	bus.EmitObservational(Event{Kind: KindTurnStart})

	assert.False(t, calledA)
	assert.True(t, calledB)
}
