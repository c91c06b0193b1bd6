package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTemplateEnter EventType = "template_enter"
	EventTemplateLeave EventType = "template_leave"
	EventMessage       EventType = "message"
	EventModelCall     EventType = "model_call"
	EventToolCall      EventType = "tool_call"
	EventToolReturn    EventType = "tool_return"
	EventJump          EventType = "jump"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NewEventBase stamps an event with the current time.
func NewEventBase(t EventType, sessionID string) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, SessionID: sessionID}
}

// TemplateEvent represents entry into or exit from a template render.
type TemplateEvent struct {
	EventBase
	TemplateID string `json:"template_id"`
	Kind       string `json:"kind"`
	// Depth counts enclosing subroutines; 0 is the root session.
	Depth int   `json:"depth"`
	Err   error `json:"-"`
}

// MessageEvent is emitted for every message appended at any depth,
// including messages that stay inside a subroutine's child session.
type MessageEvent struct {
	EventBase
	TemplateID string  `json:"template_id"`
	Depth      int     `json:"depth"`
	Message    Message `json:"message"`
}

// ModelEvent reports a completed model call.
type ModelEvent struct {
	EventBase
	TemplateID string        `json:"template_id"`
	Duration   time.Duration `json:"duration"`
	Cached     bool          `json:"cached,omitempty"`
	Err        error         `json:"-"`
}

// ToolEvent represents a tool execution.
type ToolEvent struct {
	EventBase
	TemplateID string `json:"template_id"`
	ToolName   string `json:"tool_name"`
	Input      any    `json:"input,omitempty"`
	Output     any    `json:"output,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
}

// JumpEvent reports a resolved jump.
type JumpEvent struct {
	EventBase
	From string `json:"from"`
	To   string `json:"to"`
}

// LifecycleHooks defines callbacks for engine observability. Nil fields are
// skipped.
type LifecycleHooks struct {
	OnTemplateEnter func(context.Context, *TemplateEvent)
	OnTemplateLeave func(context.Context, *TemplateEvent)
	OnMessage       func(context.Context, *MessageEvent)
	OnModelCall     func(context.Context, *ModelEvent)
	OnToolCall      func(context.Context, *ToolEvent)
	OnToolReturn    func(context.Context, *ToolEvent)
	OnJump          func(context.Context, *JumpEvent)
}

// ComposeHooks returns hooks that call each of the given hooks in order.
func ComposeHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTemplateEnter: fanOut(all, func(h LifecycleHooks) func(context.Context, *TemplateEvent) { return h.OnTemplateEnter }),
		OnTemplateLeave: fanOut(all, func(h LifecycleHooks) func(context.Context, *TemplateEvent) { return h.OnTemplateLeave }),
		OnMessage:       fanOut(all, func(h LifecycleHooks) func(context.Context, *MessageEvent) { return h.OnMessage }),
		OnModelCall:     fanOut(all, func(h LifecycleHooks) func(context.Context, *ModelEvent) { return h.OnModelCall }),
		OnToolCall:      fanOut(all, func(h LifecycleHooks) func(context.Context, *ToolEvent) { return h.OnToolCall }),
		OnToolReturn:    fanOut(all, func(h LifecycleHooks) func(context.Context, *ToolEvent) { return h.OnToolReturn }),
		OnJump:          fanOut(all, func(h LifecycleHooks) func(context.Context, *JumpEvent) { return h.OnJump }),
	}
}

func fanOut[E any](all []LifecycleHooks, pick func(LifecycleHooks) func(context.Context, E)) func(context.Context, E) {
	var fns []func(context.Context, E)
	for _, h := range all {
		if fn := pick(h); fn != nil {
			fns = append(fns, fn)
		}
	}
	if len(fns) == 0 {
		return nil
	}
	return func(ctx context.Context, e E) {
		for _, fn := range fns {
			fn(ctx, e)
		}
	}
}
