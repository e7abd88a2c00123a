package agentloop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/attractor-labs/skillrunner/agent"
	agentcontext "github.com/attractor-labs/skillrunner/context"
	"github.com/attractor-labs/skillrunner/eventbus"
	"github.com/attractor-labs/skillrunner/execkit"
	"github.com/attractor-labs/skillrunner/skill"
	"github.com/attractor-labs/skillrunner/unifiedllm"
)

// ErrBusy is returned by Chat when a call is already in flight on the
// same runner; a runner processes at most one turn at a time.
var ErrBusy = errors.New("agentloop: runner is already processing a chat call")

// Config holds the recognised configuration keys for one runner.
// MaxTurns defaults to 50 when zero, matching the external-interface
// default rather than gollm's own "0 means unlimited" convention.
type Config struct {
	Model           string
	Provider        string
	Temperature     *float64
	MaxTokens       *int
	ThinkingLevel   string // "off", "short", "long", "extended"
	MaxTurns        int

	ContextWindow       int
	ReserveTokens       int
	CompactionThreshold float64

	DefaultToolTimeoutMs int
	MaxToolTimeoutMs     int
	ToolOutputCharLimits map[string]int
	ToolOutputLineLimits map[string]int

	EnableLoopDetection bool
	LoopDetectionWindow int

	MaxForkDepth int
	forkDepth    int
}

// DefaultConfig returns the runner defaults named in the external
// interfaces: 50 turns, loop detection on with a 9-call window, a
// 30s/120s tool timeout pair, and a single level of fork nesting.
func DefaultConfig() Config {
	return Config{
		MaxTurns:             50,
		DefaultToolTimeoutMs: 30_000,
		MaxToolTimeoutMs:     120_000,
		EnableLoopDetection:  true,
		LoopDetectionWindow:  9,
		MaxForkDepth:         1,
	}
}

// Deps are the constructed collaborators a runner is wired against.
// Snapshot and Tools are shared, read-mostly across a parent and its
// forked children; Bus, Env, and ContextMgr are likewise shared unless
// the caller wants isolated children.
type Deps struct {
	Adapter    unifiedllm.ProviderAdapter
	Tools      *agent.ToolRegistry
	Bus        *eventbus.Bus
	ContextMgr *agentcontext.Manager
	Env        execkit.ExecutionEnvironment
	Snapshot   *skill.Snapshot

	// OnDebugEvent, if set, is invoked for provider stream events outside
	// the canonical set the inner loop understands (StreamStart and
	// ProviderEvent). The core layer never logs
	// these itself; a caller that wants visibility supplies this hook.
	OnDebugEvent func(unifiedllm.StreamEvent)

	// OnStreamEvent, if set, receives the full outward StreamEvent union
	// (text/thinking/tool-call deltas, tool results, turn boundaries,
	// done/error) as the runner produces them — the surface a server
	// re-emits as SSE via StreamEvent.ToWire(). Events from a forked
	// child are tagged with ChildID so a subscriber can tell them apart
	// from the parent's own stream.
	OnStreamEvent func(agent.StreamEvent)
}

// abortState is shared by a parent runner and every runner forked from
// it, so aborting the parent also cancels in-flight children. Besides
// the polled flag, it exposes a channel that closes exactly once, the
// moment abort is requested, so a blocking subprocess or adapter call
// started before the abort can be woken up without polling.
type abortState struct {
	flag atomic.Bool
	ch   chan struct{}
	once sync.Once
}

func newAbortState() *abortState {
	return &abortState{ch: make(chan struct{})}
}

func (a *abortState) set() {
	a.flag.Store(true)
	a.once.Do(func() { close(a.ch) })
}

func (a *abortState) isSet() bool { return a.flag.Load() }

// signal returns the execkit.AbortSignal a tool executor should pass
// through to ExecCommand/ExecScript so a running subprocess is
// terminated (graceful then forced) as soon as Abort() is called.
func (a *abortState) signal() execkit.AbortSignal { return a.ch }

// AgentRunner is the central scheduler: one conversation's worth of
// history, tool registry, and event bus, driving the ReAct-style inner
// loop described by the agent loop's operations.
type AgentRunner struct {
	id     string
	config Config

	adapter    unifiedllm.ProviderAdapter
	tools      *agent.ToolRegistry
	bus        *eventbus.Bus
	ctxMgr     *agentcontext.Manager
	env        execkit.ExecutionEnvironment
	snapshot   *skill.Snapshot
	onDebugEvent  func(unifiedllm.StreamEvent)
	streamSink    func(agent.StreamEvent)
	streamTag     string // non-empty only for a forked child; tags outward events with ChildID

	mu               sync.Mutex
	busy             bool
	history          []agent.Message
	turn             int
	steeringQueue    []string
	followUpQueue    []string
	activeAllowedTools map[string]bool // nil = every registered tool is allowed
	activeModel        string
	activePrimaryEnv   string // name of the active skill's designated credential var, if any

	abort *abortState
}

// NewAgentRunner constructs a root runner: MaxTurns is normalised to
// the 50-turn default when unset, and a fresh, unshared abort state is
// created (forked children share their parent's instead).
func NewAgentRunner(config Config, deps Deps, systemPrompt string) *AgentRunner {
	if config.MaxTurns == 0 {
		config.MaxTurns = 50
	}
	if config.MaxForkDepth == 0 {
		config.MaxForkDepth = 1
	}
	r := &AgentRunner{
		id:       uuidOrEmpty(),
		config:   config,
		adapter:  deps.Adapter,
		tools:    deps.Tools,
		bus:      deps.Bus,
		ctxMgr:   deps.ContextMgr,
		env:      deps.Env,
		snapshot: deps.Snapshot,
		onDebugEvent: deps.OnDebugEvent,
		streamSink:   deps.OnStreamEvent,
		abort:    newAbortState(),
	}
	if systemPrompt != "" {
		r.history = []agent.Message{agent.NewSystemMessage(systemPrompt)}
	}
	if deps.Tools != nil {
		RegisterBuiltinTools(deps.Tools, config.DefaultToolTimeoutMs, config.MaxToolTimeoutMs, r.skillToolExecutor)
		RegisterSupplementalTools(deps.Tools)
	}
	return r
}

// Chat processes one user message to completion: it may perform many
// LLM/tool round trips internally before returning the final assistant
// message. Only one Chat call may be in flight on a runner at a time.
func (r *AgentRunner) Chat(ctx context.Context, message string) (agent.Message, error) {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return agent.Message{}, ErrBusy
	}
	r.busy = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()

	return r.chat(ctx, message, true)
}

// Steer queues a message to be spliced into history the next time the
// inner loop checks between tool calls, cancelling any tool calls
// still pending in the current turn.
func (r *AgentRunner) Steer(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steeringQueue = append(r.steeringQueue, message)
}

// FollowUp queues a message to be processed as a fresh chat() call
// once the current one's inner loop exits.
func (r *AgentRunner) FollowUp(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followUpQueue = append(r.followUpQueue, message)
}

// Abort requests cancellation of the current turn (and, for a forked
// child, propagates to the child's own runner via its shared state).
// It is idempotent and edge-triggered: calling it twice or calling it
// when nothing is running has no additional effect.
func (r *AgentRunner) Abort() {
	r.abort.set()
}

// ID returns this runner's own id, the value events it produces are
// tagged with (RunID on the bus, ChildID on the outward stream for a
// forked child) so a subscriber sharing a bus/sink across a parent and
// its children can tell them apart.
func (r *AgentRunner) ID() string { return r.id }

// History returns a defensive copy of the conversation so far.
func (r *AgentRunner) History() []agent.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneMessages(r.history)
}

func (r *AgentRunner) appendHistory(msg agent.Message) {
	r.mu.Lock()
	r.history = append(r.history, msg)
	r.mu.Unlock()
}

func (r *AgentRunner) drainSteering() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.steeringQueue) == 0 {
		return nil
	}
	out := r.steeringQueue
	r.steeringQueue = nil
	return out
}

func (r *AgentRunner) popFollowUp() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.followUpQueue) == 0 {
		return "", false
	}
	next := r.followUpQueue[0]
	r.followUpQueue = r.followUpQueue[1:]
	return next, true
}

// emitObservational, emitBeforeToolCall, emitAfterToolResult,
// emitContextTransform, and emitInput wrap the corresponding Bus method,
// stamping RunID so a subscriber can tell a forked child's events apart
// from its parent's on the bus they share.
func (r *AgentRunner) emitObservational(ev eventbus.Event) {
	ev.RunID = r.id
	r.bus.EmitObservational(ev)
}

func (r *AgentRunner) emitBeforeToolCall(ev eventbus.Event) eventbus.BeforeToolCallResult {
	ev.RunID = r.id
	return r.bus.EmitBeforeToolCall(ev)
}

func (r *AgentRunner) emitAfterToolResult(ev eventbus.Event) string {
	ev.RunID = r.id
	return r.bus.EmitAfterToolResult(ev)
}

func (r *AgentRunner) emitContextTransform(ev eventbus.Event) []agent.Message {
	ev.RunID = r.id
	return r.bus.EmitContextTransform(ev)
}

func (r *AgentRunner) emitInput(ev eventbus.Event) eventbus.InputResult {
	ev.RunID = r.id
	return r.bus.EmitInput(ev)
}

// emitStream forwards one outward StreamEvent to the caller-supplied
// sink, tagging it with this runner's child id when it is a forked
// child. A root runner leaves ChildID empty.
func (r *AgentRunner) emitStream(ev agent.StreamEvent) {
	if r.streamSink == nil {
		return
	}
	if r.streamTag != "" {
		ev.ChildID = r.streamTag
	}
	r.streamSink(ev)
}

func (r *AgentRunner) findSkill(name string) *skill.Skill {
	if r.snapshot == nil {
		return nil
	}
	for _, sk := range r.snapshot.Skills {
		if sk.Name == name {
			return sk
		}
	}
	return nil
}

// chat implements one outer-loop pass; emitLifecycle controls whether
// agent_start/agent_end are emitted, so that follow-up messages
// drained after the first pass don't each open a fresh lifecycle.
func (r *AgentRunner) chat(ctx context.Context, message string, emitLifecycle bool) (agent.Message, error) {
	inputResult := r.emitInput(eventbus.Event{UserInput: message})
	if inputResult.Handled {
		return agent.NewAssistantMessage(inputResult.Response, nil), nil
	}

	resolution, isSlash, err := r.resolveSlash(ctx, message)
	if isSlash && err != nil {
		return agent.Message{}, err
	}

	var last agent.Message
	var finishReason eventbus.FinishReason

	if isSlash && resolution.isFork {
		r.appendHistory(agent.NewUserMessage(message))
		last = agent.NewAssistantMessage(resolution.forkResult, nil)
		r.appendHistory(last)
		finishReason = eventbus.FinishComplete
	} else {
		turnContent := message
		var restore func()
		if isSlash {
			turnContent = resolution.resolvedContent
			restore = r.applyOverrides(resolution.modelOverride, resolution.allowedToolsOverride, resolution.primaryEnv)
		}
		r.appendHistory(agent.NewUserMessage(turnContent))

		if emitLifecycle {
			r.emitObservational(eventbus.Event{Kind: eventbus.KindAgentStart})
		}

		last, finishReason = func() (agent.Message, eventbus.FinishReason) {
			if restore != nil {
				defer restore()
			}
			return r.innerLoop(ctx)
		}()
	}

	for {
		next, ok := r.popFollowUp()
		if !ok {
			break
		}
		last, err = r.chat(ctx, next, false)
		if err != nil {
			break
		}
	}

	if emitLifecycle {
		r.emitObservational(eventbus.Event{Kind: eventbus.KindAgentEnd, FinishReason: finishReason})
	}

	return last, err
}

// applyOverrides installs a skill's model/allowed_tools overrides for
// the duration of one inner-loop pass, returning a restore func that
// is guaranteed to run via a defer at the call site even on panic
// recovery paths higher up the stack.
func (r *AgentRunner) applyOverrides(model string, allowedTools map[string]bool, primaryEnv string) func() {
	r.mu.Lock()
	prevModel := r.activeModel
	prevAllowed := r.activeAllowedTools
	prevPrimaryEnv := r.activePrimaryEnv
	if model != "" {
		r.activeModel = model
	}
	if allowedTools != nil {
		r.activeAllowedTools = allowedTools
	}
	if primaryEnv != "" {
		r.activePrimaryEnv = primaryEnv
	}
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		r.activeModel = prevModel
		r.activeAllowedTools = prevAllowed
		r.activePrimaryEnv = prevPrimaryEnv
		r.mu.Unlock()
	}
}

// resolvePrimaryEnv resolves the active skill's designated credential
// variable, if any, to its value in the host process's raw environment
// (bypassing execkit's caller-env secret filtering for that one named
// variable) and returns it as the single-entry map ComposeEnv expects
// for its primaryEnv layer. Returns nil if no skill is active, no
// primary_env is declared, or the named variable is unset.
func (r *AgentRunner) resolvePrimaryEnv() map[string]string {
	r.mu.Lock()
	name := r.activePrimaryEnv
	r.mu.Unlock()
	if name == "" {
		return nil
	}
	value, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	return map[string]string{name: value}
}

// innerLoop runs the ReAct cycle until the model responds with no
// pending tool calls, the turn budget is exhausted, the run is
// aborted, or an unrecoverable adapter error occurs.
func (r *AgentRunner) innerLoop(ctx context.Context) (agent.Message, eventbus.FinishReason) {
	var lastAssistant agent.Message

	for {
		if r.abort.isSet() {
			return lastAssistant, eventbus.FinishAborted
		}
		select {
		case <-ctx.Done():
			return lastAssistant, eventbus.FinishAborted
		default:
		}

		r.mu.Lock()
		r.turn++
		turnNumber := r.turn
		maxTurns := r.config.MaxTurns
		r.mu.Unlock()

		if maxTurns > 0 && turnNumber > maxTurns {
			// Unresolved steering at max_turns is not dropped: it is
			// queued as a follow-up for a fresh outer chat() call.
			if pending := r.drainSteering(); len(pending) > 0 {
				r.mu.Lock()
				r.followUpQueue = append(r.followUpQueue, pending...)
				r.mu.Unlock()
			}
			return lastAssistant, eventbus.FinishMaxTurns
		}
		r.emitObservational(eventbus.Event{Kind: eventbus.KindTurnStart, TurnNumber: turnNumber})
		r.emitStream(agent.StreamEvent{Kind: agent.EventTurnStart})

		r.mu.Lock()
		history := cloneMessages(r.history)
		r.mu.Unlock()

		if r.ctxMgr != nil && r.ctxMgr.ShouldCompact(history) {
			compacted, report := r.ctxMgr.Compact(history)
			r.mu.Lock()
			r.history = compacted
			r.mu.Unlock()
			r.emitObservational(eventbus.Event{
				Kind:           eventbus.KindCompaction,
				MessagesBefore: report.MessagesBefore,
				MessagesAfter:  report.MessagesAfter,
				TokensBefore:   report.TokensBefore,
				TokensAfter:    report.TokensAfter,
			})
			history = compacted
		}

		transformed := r.emitContextTransform(eventbus.Event{Messages: history})
		r.mu.Lock()
		r.history = transformed
		r.mu.Unlock()

		req := r.buildRequest(agent.ProjectToLLM(transformed))

		streamCtx, stopWatching := r.abortableContext(ctx)
		stream, err := r.adapter.Stream(streamCtx, req)
		if err != nil {
			stopWatching()
			r.emitTurnEnd(turnNumber)
			return lastAssistant, eventbus.FinishError
		}

		assistantMsg, aborted, streamErr := r.consumeStream(stream)
		stopWatching()
		if streamErr != nil {
			r.emitTurnEnd(turnNumber)
			return lastAssistant, eventbus.FinishError
		}
		if aborted {
			// Discard partial assistant text: no message is appended.
			r.emitTurnEnd(turnNumber)
			return lastAssistant, eventbus.FinishAborted
		}

		r.appendHistory(assistantMsg)
		lastAssistant = assistantMsg

		r.emitTurnEnd(turnNumber)

		if !assistantMsg.HasToolCalls() {
			return lastAssistant, eventbus.FinishComplete
		}

		if steered := r.dispatchToolCalls(ctx, assistantMsg.ToolCalls); steered {
			continue
		}

		if r.config.EnableLoopDetection {
			r.mu.Lock()
			hist := cloneMessages(r.history)
			r.mu.Unlock()
			if DetectToolLoop(hist, r.config.LoopDetectionWindow) {
				warning := fmt.Sprintf(
					"Loop detected: the last %d tool calls follow a repeating pattern. Reconsider the approach instead of repeating the same calls.",
					r.config.LoopDetectionWindow,
				)
				r.appendHistory(agent.NewUserMessage(warning))
			}
		}
	}
}

func (r *AgentRunner) emitTurnEnd(turnNumber int) {
	r.emitObservational(eventbus.Event{Kind: eventbus.KindTurnEnd, TurnNumber: turnNumber})
	r.emitStream(agent.StreamEvent{Kind: agent.EventTurnEnd})
}

// dispatchToolCalls runs calls sequentially, never in parallel, so
// tool-call ordering in history stays deterministic and steering has a
// well-defined point to interrupt at. After each call it drains any
// queued steering messages; if steering arrived, the remaining calls
// in this turn are cancelled and true is returned so the inner loop
// re-enters at the top instead of continuing the round.
func (r *AgentRunner) dispatchToolCalls(ctx context.Context, calls []agent.ToolCall) bool {
	for _, tc := range calls {
		if r.abort.isSet() {
			return false
		}

		content, _ := r.runOneTool(ctx, tc)
		r.appendHistory(agent.NewToolResultMessage(tc.ID, tc.Name, content))

		if steering := r.drainSteering(); len(steering) > 0 {
			for _, s := range steering {
				r.appendHistory(agent.NewUserMessage(s))
			}
			return true
		}
	}
	return false
}

func (r *AgentRunner) runOneTool(ctx context.Context, tc agent.ToolCall) (string, bool) {
	blockResult := r.emitBeforeToolCall(eventbus.Event{ToolCall: tc})
	if blockResult.Block {
		return synthesizeToolError(blockResult.Reason), true
	}

	r.mu.Lock()
	allowed := r.activeAllowedTools
	r.mu.Unlock()
	if allowed != nil && !allowed[tc.Name] {
		return synthesizeToolError(fmt.Sprintf("tool %q is not permitted for this invocation", tc.Name)), true
	}

	registered := r.tools.Get(tc.Name)
	if registered == nil {
		return synthesizeToolError(fmt.Sprintf("unknown tool: %s", tc.Name)), true
	}

	ctx = withPrimaryEnv(ctx, r.resolvePrimaryEnv())
	raw, err := registered.Executor(ctx, []byte(tc.Arguments), r.env, r.abort.signal())
	var content string
	if err != nil {
		content = synthesizeToolError(fmt.Sprintf("tool %q failed: %v", tc.Name, err))
	} else {
		content = execkit.TruncateToolOutput(raw, tc.Name, r.config.ToolOutputCharLimits, r.config.ToolOutputLineLimits)
	}

	result := &agent.ToolResult{CallID: tc.ID, Name: tc.Name, Content: content}
	replaced := r.emitAfterToolResult(eventbus.Event{ToolResult: result})
	r.emitStream(agent.StreamEvent{Kind: agent.EventToolResult, ToolCallID: tc.ID, ToolName: tc.Name, Content: replaced})
	return replaced, err != nil
}

func synthesizeToolError(reason string) string {
	return fmt.Sprintf("[ERROR: %s]", reason)
}

// abortableContext derives a context that is cancelled either when
// parent is cancelled or when the runner's abort state is set,
// whichever comes first. The returned stop func must always be called
// once the derived context is no longer needed, to release the
// watcher goroutine.
func (r *AgentRunner) abortableContext(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	stop := make(chan struct{})
	go func() {
		select {
		case <-r.abort.signal():
			cancel()
		case <-stop:
		}
	}()
	return ctx, func() {
		close(stop)
		cancel()
	}
}

// buildRequest projects the runner's current config and active
// overrides onto a unifiedllm.Request.
func (r *AgentRunner) buildRequest(messages []agent.LLMMessage) unifiedllm.Request {
	r.mu.Lock()
	model := r.config.Model
	if r.activeModel != "" {
		model = r.activeModel
	}
	allowed := r.activeAllowedTools
	r.mu.Unlock()

	var toolDefs []agent.ToolDefinition
	if allowed != nil {
		toolDefs = r.tools.DefinitionsSubset(allowed)
	} else {
		toolDefs = r.tools.Definitions()
	}

	return unifiedllm.Request{
		Model:           model,
		Provider:        r.config.Provider,
		Messages:        toUnifiedMessages(messages),
		ToolDefs:        toUnifiedTools(toolDefs),
		Temperature:     r.config.Temperature,
		MaxTokens:       r.config.MaxTokens,
		ReasoningEffort: thinkingLevelToEffort(r.config.ThinkingLevel),
	}
}

func thinkingLevelToEffort(level string) string {
	switch level {
	case "short":
		return "low"
	case "long":
		return "medium"
	case "extended":
		return "high"
	default:
		return ""
	}
}

// consumeStream drains one adapter stream into a single assistant
// message, re-emitting each canonical event as the outward
// agent.StreamEvent union (Deps.OnStreamEvent) so external subscribers
// see incremental text/thinking/tool-call deltas; text deltas are also
// fired on the bus as tool_execution_update.
// It returns aborted=true if the run was cancelled mid-stream, in
// which case the caller must discard the partial message.
func (r *AgentRunner) consumeStream(stream <-chan unifiedllm.StreamEvent) (agent.Message, bool, error) {
	var text string
	var toolCalls []agent.ToolCall
	pending := map[string]*agent.ToolCall{}
	var order []string

	for ev := range stream {
		if r.abort.isSet() {
			return agent.Message{}, true, nil
		}

		switch ev.Type {
		case unifiedllm.TextStart:
			r.emitStream(agent.StreamEvent{Kind: agent.EventTextStart})
		case unifiedllm.TextDelta:
			text += ev.Delta
			r.emitObservational(eventbus.Event{Kind: eventbus.KindToolExecutionUpdate, OutputChunk: ev.Delta})
			r.emitStream(agent.StreamEvent{Kind: agent.EventTextDelta, Content: ev.Delta})
		case unifiedllm.TextEnd:
			r.emitStream(agent.StreamEvent{Kind: agent.EventTextEnd})
		case unifiedllm.ReasoningStart:
			r.emitStream(agent.StreamEvent{Kind: agent.EventThinkingStart})
		case unifiedllm.ReasoningDelta:
			r.emitStream(agent.StreamEvent{Kind: agent.EventThinkingDelta, Content: ev.ReasoningDelta})
		case unifiedllm.ReasoningEnd:
			r.emitStream(agent.StreamEvent{Kind: agent.EventThinkingEnd})
		case unifiedllm.ToolCallStart:
			if ev.ToolCall != nil {
				pending[ev.ToolCall.ID] = &agent.ToolCall{ID: ev.ToolCall.ID, Name: ev.ToolCall.Name}
				order = append(order, ev.ToolCall.ID)
				r.emitStream(agent.StreamEvent{Kind: agent.EventToolCallStart, ToolCallID: ev.ToolCall.ID, ToolName: ev.ToolCall.Name})
			}
		case unifiedllm.ToolCallDelta:
			if ev.ToolCall != nil {
				if tc, ok := pending[ev.ToolCall.ID]; ok {
					tc.Arguments += string(ev.ToolCall.Arguments)
				}
				r.emitStream(agent.StreamEvent{Kind: agent.EventToolCallDelta, ToolCallID: ev.ToolCall.ID, ArgsDelta: string(ev.ToolCall.Arguments)})
			}
		case unifiedllm.ToolCallEnd:
			if ev.ToolCall != nil {
				if tc, ok := pending[ev.ToolCall.ID]; ok {
					if len(ev.ToolCall.Arguments) > 0 {
						tc.Arguments = string(ev.ToolCall.Arguments)
					}
				}
				r.emitStream(agent.StreamEvent{Kind: agent.EventToolCallEnd, ToolCallID: ev.ToolCall.ID, ToolName: ev.ToolCall.Name})
			}
		case unifiedllm.StreamError:
			r.emitStream(agent.StreamEvent{Kind: agent.EventError, Error: ev.Error.Error()})
			return agent.Message{}, false, ev.Error
		case unifiedllm.StreamFinish:
			if ev.Response != nil {
				fromResponse := responseToAssistantMessage(ev.Response.Message)
				if len(fromResponse.ToolCalls) > 0 || fromResponse.Content != "" {
					return fromResponse, false, nil
				}
			}
		default:
			// StreamStart, ProviderEvent: outside the set the outward
			// StreamEvent union names. Dropped here, but surfaced to a
			// caller-supplied hook rather than logged.
			if r.onDebugEvent != nil {
				r.onDebugEvent(ev)
			}
		}
	}

	for _, id := range order {
		toolCalls = append(toolCalls, *pending[id])
	}
	return agent.NewAssistantMessage(text, toolCalls), false, nil
}

func cloneMessages(msgs []agent.Message) []agent.Message {
	out := make([]agent.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

func uuidOrEmpty() string {
	id, err := newUUID()
	if err != nil {
		return ""
	}
	return id
}
