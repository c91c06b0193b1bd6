package model

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func session(msgs ...domain.Message) *domain.Session {
	return domain.NewSession(domain.WithMessages(msgs...))
}

func TestScripted(t *testing.T) {
	m := NewScripted(map[string]string{"hello": "hi there"})
	ctx := context.Background()

	resp, err := m.Send(ctx, session(
		domain.NewMessage(domain.RoleUser, "hello"),
		domain.NewMessage(domain.RoleControl, "ignored"),
	))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssistant, resp.Role)
	assert.Equal(t, "hi there", resp.Content)

	_, err = m.Send(ctx, session(domain.NewMessage(domain.RoleUser, "unknown")))
	assert.ErrorIs(t, err, ErrNoScriptedResponse)

	_, err = m.Send(ctx, session())
	assert.ErrorIs(t, err, ErrNoScriptedResponse)
}

func TestEcho(t *testing.T) {
	resp, err := Echo{}.Send(context.Background(), session(domain.NewMessage(domain.RoleUser, "ping")))
	require.NoError(t, err)
	assert.Equal(t, "ping", resp.Content)
}

func TestSequence_RecordsCalls(t *testing.T) {
	m := NewSequence(CallTool("echo", map[string]any{"x": 1}), Reply("done"))
	ctx := context.Background()

	first, err := m.Send(ctx, session(), ports.WithTools(domain.ToolSpec{Name: "echo"}))
	require.NoError(t, err)
	require.NotNil(t, first.ToolCall)
	assert.Equal(t, "echo", first.ToolCall.Name)
	assert.NotEmpty(t, first.ToolCall.ID)

	second, err := m.Send(ctx, session())
	require.NoError(t, err)
	assert.Equal(t, "done", second.Content)

	_, err = m.Send(ctx, session())
	assert.ErrorIs(t, err, ErrNoScriptedResponse)

	calls := m.Calls()
	require.Len(t, calls, 3)
	assert.Len(t, calls[0].Tools, 1)
	assert.Empty(t, calls[1].Tools)
}

func TestFunc(t *testing.T) {
	m := Func(func(_ context.Context, s *domain.Session, call ports.Call) (domain.Message, error) {
		return Reply(s.ID()), nil
	})
	s := domain.NewSession(domain.WithID("abc"))
	resp, err := m.Send(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Content)
}

func TestChunked_StreamsFragments(t *testing.T) {
	m := Chunked{Inner: NewScripted(map[string]string{"q": "héllo"}), Size: 2}
	var parts []string
	for frag, err := range m.SendStream(context.Background(), session(domain.NewMessage(domain.RoleUser, "q"))) {
		require.NoError(t, err)
		parts = append(parts, frag.Content)
	}
	assert.Equal(t, []string{"hé", "ll", "o"}, parts)
}

func TestChunked_PropagatesError(t *testing.T) {
	m := Chunked{Inner: NewScripted(nil), Size: 2}
	var gotErr error
	for _, err := range m.SendStream(context.Background(), session(domain.NewMessage(domain.RoleUser, "q"))) {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, ErrNoScriptedResponse)
}
