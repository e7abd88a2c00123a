package eventbus

import (
	"log"
	"sort"
	"sync"

	"github.com/attractor-labs/skillrunner/agent"
)

// Handler observes or intercepts one Event. Handlers may run
// concurrently with other kinds' emissions but never concurrently with
// another handler of the same emission (emission is sequential by
// priority). A handler that panics is caught, logged with its
// subscriber tag, and treated as returning a nil Response.
type Handler func(Event) (Response, error)

// Response is the union of everything a handler may return. Only the
// field matching the emitted Kind is consulted; the rest are ignored.
type Response struct {
	BeforeToolCall   *BeforeToolCallResult
	AfterToolResult  *AfterToolResultResult
	ContextTransform *ContextTransformResult
	Input            *InputResult
}

// Subscription is the handle returned by On, used to unsubscribe a
// single handler.
type Subscription struct {
	id int
}

type subscriber struct {
	id         int
	kind       Kind
	handler    Handler
	priority   int
	sourceTag  string
	registered int // registration order, for stable tie-break
}

// Bus is the lifecycle interception layer. The zero value is not
// usable; construct with New.
type Bus struct {
	mu       sync.Mutex
	subs     map[Kind][]*subscriber
	nextID   int
	nextSeq  int
}

func New() *Bus {
	return &Bus{subs: make(map[Kind][]*subscriber)}
}

// On registers handler for kind at the given priority (higher runs
// first; ties broken by registration order) under sourceTag, an
// owner label used by UnsubscribeSource for bulk removal. It returns
// an unsubscribe handle.
func (b *Bus) On(kind Kind, handler Handler, priority int, sourceTag string) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.nextSeq++
	sub := &subscriber{
		id:         b.nextID,
		kind:       kind,
		handler:    handler,
		priority:   priority,
		sourceTag:  sourceTag,
		registered: b.nextSeq,
	}
	b.subs[kind] = append(b.subs[kind], sub)
	sortSubscribers(b.subs[kind])
	return Subscription{id: sub.id}
}

// Off removes a single subscription.
func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for kind, list := range b.subs {
		for i, s := range list {
			if s.id == sub.id {
				b.subs[kind] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// UnsubscribeSource removes every handler registered under sourceTag,
// across all event kinds.
func (b *Bus) UnsubscribeSource(sourceTag string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for kind, list := range b.subs {
		kept := list[:0:0]
		for _, s := range list {
			if s.sourceTag != sourceTag {
				kept = append(kept, s)
			}
		}
		b.subs[kind] = kept
	}
}

func sortSubscribers(list []*subscriber) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority > list[j].priority
		}
		return list[i].registered < list[j].registered
	})
}

// snapshot returns a copy of the current handler list for kind, taken
// under lock, so emission never races with On/Off.
func (b *Bus) snapshot(kind Kind) []*subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[kind]
	out := make([]*subscriber, len(list))
	copy(out, list)
	return out
}

// invoke calls a handler, converting a panic into a logged, swallowed
// error so a misbehaving subscriber never aborts emission.
func invoke(s *subscriber, event Event) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("eventbus: handler for %s (source=%q) panicked: %v", event.Kind, s.sourceTag, r)
			resp, err = Response{}, nil
		}
	}()
	resp, err = s.handler(event)
	if err != nil {
		log.Printf("eventbus: handler for %s (source=%q) returned error: %v", event.Kind, s.sourceTag, err)
		err = nil
	}
	return resp, nil
}

// EmitObservational fires an event whose handler return values are
// purely observational (every kind except before_tool_call,
// after_tool_result, context_transform, and input).
func (b *Bus) EmitObservational(event Event) {
	for _, s := range b.snapshot(event.Kind) {
		_, _ = invoke(s, event)
	}
}

// EmitBeforeToolCall runs every before_tool_call handler in priority
// order. All handlers are invoked regardless of an earlier block (for
// observation), but the first block encountered is what the caller
// acts on.
func (b *Bus) EmitBeforeToolCall(event Event) BeforeToolCallResult {
	event.Kind = KindBeforeToolCall
	var blocked *BeforeToolCallResult
	for _, s := range b.snapshot(KindBeforeToolCall) {
		resp, _ := invoke(s, event)
		if resp.BeforeToolCall != nil && resp.BeforeToolCall.Block && blocked == nil {
			blocked = resp.BeforeToolCall
		}
	}
	if blocked != nil {
		return *blocked
	}
	return BeforeToolCallResult{}
}

// EmitAfterToolResult runs every after_tool_result handler in
// priority order, chaining each replacement into the next handler's
// view of the result content.
func (b *Bus) EmitAfterToolResult(event Event) string {
	event.Kind = KindAfterToolResult
	content := ""
	if event.ToolResult != nil {
		content = event.ToolResult.Content
	}
	for _, s := range b.snapshot(KindAfterToolResult) {
		call := event
		if call.ToolResult != nil {
			chained := *call.ToolResult
			chained.Content = content
			call.ToolResult = &chained
		}
		resp, _ := invoke(s, call)
		if resp.AfterToolResult != nil && resp.AfterToolResult.Replaced {
			content = resp.AfterToolResult.Replacement
		}
	}
	return content
}

// EmitContextTransform runs every context_transform handler in
// priority order, chaining each replacement message list into the
// next handler's view of history.
func (b *Bus) EmitContextTransform(event Event) []agent.Message {
	event.Kind = KindContextTransform
	messages := event.Messages
	for _, s := range b.snapshot(KindContextTransform) {
		call := event
		call.Messages = messages
		resp, _ := invoke(s, call)
		if resp.ContextTransform != nil && resp.ContextTransform.Replaced {
			messages = resp.ContextTransform.Messages
		}
	}
	return messages
}

// EmitInput runs every input handler in priority order until one
// short-circuits with handled=true; no downstream handlers run after
// that.
func (b *Bus) EmitInput(event Event) InputResult {
	event.Kind = KindInput
	for _, s := range b.snapshot(KindInput) {
		resp, _ := invoke(s, event)
		if resp.Input != nil && resp.Input.Handled {
			return *resp.Input
		}
	}
	return InputResult{}
}
