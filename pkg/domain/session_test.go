package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_AppendIsOrderedAndBatched(t *testing.T) {
	s := NewSession()
	s.Append(NewMessage(RoleSystem, "sys"))
	s.Append(NewMessage(RoleUser, "a"), NewMessage(RoleAssistant, "b"))

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "sys", msgs[0].Content)
	assert.Equal(t, "a", msgs[1].Content)
	assert.Equal(t, "b", msgs[2].Content)

	// Snapshot is a copy.
	msgs[0].Content = "changed"
	first := s.Messages()[0]
	assert.Equal(t, "sys", first.Content)
}

func TestSession_LastNonControl(t *testing.T) {
	s := NewSession(WithMessages(
		NewMessage(RoleUser, "hello"),
		NewMessage(RoleControl, "tick"),
	))

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, RoleControl, last.Role)

	msg, ok := s.LastNonControl()
	require.True(t, ok)
	assert.Equal(t, "hello", msg.Content)

	_, ok = NewSession().LastNonControl()
	assert.False(t, ok)
}

func TestSession_Validate(t *testing.T) {
	ok := NewSession(WithMessages(NewMessage(RoleSystem, "s"), NewMessage(RoleUser, "u")))
	assert.NoError(t, ok.Validate())

	late := NewSession(WithMessages(NewMessage(RoleUser, "u"), NewMessage(RoleSystem, "s")))
	err := late.Validate()
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, 1, vErr.Index)

	// Validation never repairs.
	assert.Equal(t, RoleSystem, late.Messages()[1].Role)

	bad := NewSession(WithMessages(Message{Role: "robot"}))
	assert.Error(t, bad.Validate())
}

func TestSession_CloneDoesNotAlias(t *testing.T) {
	nested := map[string]any{"inner": []any{"x"}}
	parent := NewSession(
		WithMessages(NewMessage(RoleUser, "hi").WithMeta("k", "v")),
		WithMetadata(map[string]any{"nested": nested, "n": 1}),
	)

	child := parent.Clone()
	assert.Equal(t, parent.ID(), child.ID())

	child.SetMeta("n", 2)
	child.Append(NewMessage(RoleAssistant, "child only"))
	inner := child.Metadata()["nested"].(map[string]any)
	inner["inner"].([]any)[0] = "mutated"

	assert.Equal(t, 1, parent.Metadata()["n"])
	assert.Equal(t, 1, parent.Len())
	parentNested := parent.Metadata()["nested"].(map[string]any)
	assert.Equal(t, "x", parentNested["inner"].([]any)[0])
}

func TestSession_ForkAndAdopt(t *testing.T) {
	s := NewSession(WithMessages(NewMessage(RoleUser, "one")))
	next := s.WithMeta("flag", true)
	next.Append(NewMessage(RoleAssistant, "two"))
	next.SetJumpTarget("target")

	// The fork does not touch the original until adopted.
	assert.Equal(t, 1, s.Len())
	_, has := s.Metadata().Get("flag")
	assert.False(t, has)

	require.NoError(t, s.Adopt(next))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, true, s.Metadata()["flag"])
	target, ok := s.JumpTarget()
	assert.True(t, ok)
	assert.Equal(t, "target", target)
}

func TestSession_AdoptRejectsRewrittenHistory(t *testing.T) {
	s := NewSession(WithMessages(NewMessage(RoleUser, "one"), NewMessage(RoleUser, "two")))
	shorter := NewSession(WithMessages(NewMessage(RoleUser, "one")))

	err := s.Adopt(shorter)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, 2, s.Len())
}

func TestSession_Stack(t *testing.T) {
	s := NewSession()
	s.Push(StackFrame{TemplateID: "root"})
	s.Push(StackFrame{TemplateID: "loop"})
	s.SetPosition(3)

	stack := s.Stack()
	require.Len(t, stack, 2)
	assert.Equal(t, StackFrame{TemplateID: "loop", Position: 3}, stack[1])

	f, ok := s.Pop()
	assert.True(t, ok)
	assert.Equal(t, "loop", f.TemplateID)
	s.Pop()
	_, ok = s.Pop()
	assert.False(t, ok)
}

func TestSession_JSONRoundTrip(t *testing.T) {
	s := NewSession(WithID("abc"), WithMessages(NewMessage(RoleUser, "hi")))
	s.SetMeta("count", 2)
	s.Push(StackFrame{TemplateID: "root", Position: 1})

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var out Session
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "abc", out.ID())
	assert.Equal(t, "hi", out.Messages()[0].Content)
	n, ok := out.Metadata().Int("count")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	assert.Equal(t, []StackFrame{{TemplateID: "root", Position: 1}}, out.Stack())
}
