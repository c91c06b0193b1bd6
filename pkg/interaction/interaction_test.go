package interaction

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

var (
	_ ports.UserInteraction = (*Scripted)(nil)
	_ ports.UserInteraction = Echo{}
	_ ports.UserInteraction = DefaultOrEcho{}
	_ ports.UserInteraction = (*Queue)(nil)
	_ ports.UserInteraction = Func(nil)
)

func session(contents ...string) *domain.Session {
	s := domain.NewSession()
	for _, c := range contents {
		s.Append(domain.NewMessage(domain.RoleAssistant, c))
	}
	return s
}

func TestScripted(t *testing.T) {
	ui := NewScripted(map[string]string{"name?": "ada"})
	ctx := context.Background()

	s := session("name?")
	s.Append(domain.NewMessage(domain.RoleControl, "bookkeeping"))
	got, err := ui.Ask(ctx, s, "", "")
	require.NoError(t, err)
	assert.Equal(t, "ada", got)

	_, err = ui.Ask(ctx, session("age?"), "", "")
	assert.ErrorIs(t, err, ErrNoScriptedAnswer)

	_, err = ui.Ask(ctx, session(), "", "")
	assert.ErrorIs(t, err, ErrNoScriptedAnswer)
}

func TestEchoAndDefault(t *testing.T) {
	ctx := context.Background()
	s := session("hello")

	got, err := Echo{}.Ask(ctx, s, "", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	got, err = DefaultOrEcho{}.Ask(ctx, s, "", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	got, err = DefaultOrEcho{}.Ask(ctx, s, "", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestQueue(t *testing.T) {
	q := NewQueue("one", "two")
	ctx := context.Background()

	a, err := q.Ask(ctx, session(), "first?", "")
	require.NoError(t, err)
	b, err := q.Ask(ctx, session(), "second?", "")
	require.NoError(t, err)
	_, err = q.Ask(ctx, session(), "third?", "")

	assert.Equal(t, []string{"one", "two"}, []string{a, b})
	assert.ErrorIs(t, err, ErrNoScriptedAnswer)
	assert.Equal(t, []string{"first?", "second?", "third?"}, q.Prompts())
}

func TestInput_ClosesWithEOF(t *testing.T) {
	in := NewInput("only")
	ctx := context.Background()

	a, err := in.Ask(ctx, session(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "only", a)

	_, err = in.Ask(ctx, session(), "", "")
	assert.ErrorIs(t, err, io.EOF)
}
