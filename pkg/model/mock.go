package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// ErrNoScriptedResponse is returned by Scripted when no entry matches.
var ErrNoScriptedResponse = errors.New("no scripted response")

// Scripted answers from a table keyed by the content of the last non-control
// message. It is the one-turn conversation double used in tests.
type Scripted struct {
	Responses map[string]string
}

// NewScripted creates a Scripted model from key/response pairs.
func NewScripted(responses map[string]string) *Scripted {
	return &Scripted{Responses: responses}
}

func (m *Scripted) Send(_ context.Context, s *domain.Session, _ ...ports.CallOption) (domain.Message, error) {
	last, ok := s.LastNonControl()
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: empty session", ErrNoScriptedResponse)
	}
	resp, ok := m.Responses[last.Content]
	if !ok {
		return domain.Message{}, fmt.Errorf("%w for %q", ErrNoScriptedResponse, last.Content)
	}
	return domain.NewMessage(domain.RoleAssistant, resp), nil
}

// Echo repeats the last non-control message as an assistant message.
type Echo struct{}

func (Echo) Send(_ context.Context, s *domain.Session, _ ...ports.CallOption) (domain.Message, error) {
	last, _ := s.LastNonControl()
	return domain.NewMessage(domain.RoleAssistant, last.Content), nil
}

// Func adapts a function to ports.Model.
type Func func(ctx context.Context, s *domain.Session, call ports.Call) (domain.Message, error)

func (f Func) Send(ctx context.Context, s *domain.Session, opts ...ports.CallOption) (domain.Message, error) {
	return f(ctx, s, ports.ApplyCallOptions(opts...))
}

// Sequence returns its messages in order, one per call, and fails once they
// run out. It is safe for concurrent use.
type Sequence struct {
	mu    sync.Mutex
	msgs  []domain.Message
	calls []ports.Call
}

// NewSequence creates a Sequence model.
func NewSequence(msgs ...domain.Message) *Sequence {
	return &Sequence{msgs: msgs}
}

func (m *Sequence) Send(_ context.Context, _ *domain.Session, opts ...ports.CallOption) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ports.ApplyCallOptions(opts...))
	if len(m.msgs) == 0 {
		return domain.Message{}, fmt.Errorf("%w: sequence exhausted", ErrNoScriptedResponse)
	}
	next := m.msgs[0]
	m.msgs = m.msgs[1:]
	return next, nil
}

// Calls returns the options of every call received so far.
func (m *Sequence) Calls() []ports.Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Call(nil), m.calls...)
}

// CallTool builds an assistant message requesting a tool call.
func CallTool(name string, args map[string]any) domain.Message {
	msg := domain.NewMessage(domain.RoleAssistant, "")
	msg.ToolCall = &domain.ToolCall{ID: newCallID(), Name: name, Args: args}
	return msg
}

// Reply builds a plain assistant message.
func Reply(content string) domain.Message {
	return domain.NewMessage(domain.RoleAssistant, content)
}
