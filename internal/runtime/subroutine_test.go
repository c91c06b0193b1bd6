package runtime

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/interaction"
	"github.com/aretw0/tendril/pkg/model"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/strategy"
	"github.com/aretw0/tendril/pkg/template"
)

func TestSubroutine_OnlySquashedMessagesReachParent(t *testing.T) {
	var depths []int
	hooks := domain.LifecycleHooks{OnMessage: func(_ context.Context, e *domain.MessageEvent) { depths = append(depths, e.Depth) }}
	root := template.Seq(
		template.User("question"),
		&template.Subroutine{Inner: template.Seq(template.Assistant("thinking"), template.Assistant("answer"))},
	)
	s := domain.NewSession()

	msgs, err := render(t, NewEngine(WithLifecycleHooks(hooks)), root, s, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"question", "answer"}, contents(msgs))
	assert.Equal(t, []string{"question", "answer"}, contents(s.Messages()))
	assert.Equal(t, []int{0, 1, 1, 0}, depths)
}

func TestSubroutine_InitAndSquashStrategies(t *testing.T) {
	var seen []string
	inspect := func(_ context.Context, s *domain.Session) (*domain.Session, error) {
		seen = contents(s.Messages())
		return s, nil
	}
	root := template.Seq(
		template.System("rules"),
		template.User("question"),
		&template.Subroutine{
			Init:   strategy.InheritSystem(),
			Squash: strategy.KeepAll(),
			Inner:  template.WithBefore(template.Seq(template.Assistant("one"), template.Assistant("two")), inspect),
		},
	)
	s := domain.NewSession()

	_, err := render(t, NewEngine(), root, s, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"rules"}, seen)
	assert.Equal(t, []string{"rules", "question", "one", "two"}, contents(s.Messages()))
}

func TestSubroutine_FailureLeavesParentUnchanged(t *testing.T) {
	failing := model.Func(func(context.Context, *domain.Session, ports.Call) (domain.Message, error) {
		return domain.Message{}, errors.New("down")
	})
	root := template.Seq(
		template.User("question"),
		&template.Subroutine{
			Squash: strategy.KeepAll(),
			Inner:  template.Seq(template.Assistant("partial"), template.Generate()),
		},
	)
	s := domain.NewSession()

	_, err := render(t, NewEngine(), root, s, &Context{Model: failing})
	var collab *domain.CollaboratorError
	require.ErrorAs(t, err, &collab)
	assert.Equal(t, []string{"question"}, contents(s.Messages()))
}

func TestSubroutine_MetadataIsIsolated(t *testing.T) {
	set := func(_ context.Context, s *domain.Session) (*domain.Session, error) {
		return s.WithMeta("inner", true), nil
	}
	root := &template.Subroutine{Inner: template.WithBefore(template.Assistant("x"), set)}
	s := domain.NewSession()

	_, err := render(t, NewEngine(), root, s, nil)
	require.NoError(t, err)
	_, ok := s.Metadata()["inner"]
	assert.False(t, ok)
}

func TestSubroutine_ModelOverride(t *testing.T) {
	outer := model.NewScripted(map[string]string{"echo me": "outer"})
	root := template.Seq(
		template.User("q"),
		&template.Subroutine{
			Init:  strategy.Clean(),
			Model: model.Echo{},
			Inner: template.Seq(template.User("echo me"), template.Generate()),
		},
		template.Generate(),
	)

	msgs, err := render(t, NewEngine(), root, domain.NewSession(), &Context{Model: outer})
	require.NoError(t, err)
	assert.Equal(t, []string{"q", "echo me", "outer"}, contents(msgs))
}

func TestSubroutine_EnvironmentOverride(t *testing.T) {
	env := &template.Environment{Model: model.NewScripted(map[string]string{"inside": "from env"})}
	root := &template.Subroutine{
		Environment: env,
		Inner:       template.Seq(template.User("inside"), template.Generate()),
	}
	msgs, err := render(t, NewEngine(), root, domain.NewSession(), &Context{Model: model.Echo{}})
	require.NoError(t, err)
	assert.Equal(t, []string{"from env"}, contents(msgs))
}

func TestSubroutine_BreakEndsInnerTemplate(t *testing.T) {
	root := template.Seq(
		&template.Subroutine{Squash: strategy.KeepAll(), Inner: &template.Loop{Templates: []template.Template{template.Assistant("x"), &template.Break{}}}},
		template.Assistant("after"),
	)
	msgs, err := render(t, NewEngine(), root, domain.NewSession(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "after"}, contents(msgs))
}

func TestSubroutine_TerminationMergesFirst(t *testing.T) {
	root := template.Seq(
		&template.Subroutine{Squash: strategy.KeepAll(), Inner: template.Seq(template.Assistant("last words"), &template.End{})},
		template.Assistant("unreached"),
	)
	s := domain.NewSession()
	msgs, err := render(t, NewEngine(), root, s, nil)
	assert.ErrorIs(t, err, domain.ErrEndOfConversation)
	assert.Equal(t, []string{"last words"}, contents(msgs))
}

func TestSubroutine_JumpOutDiscardsChild(t *testing.T) {
	root := template.Seq(
		template.Named("top", template.Assistant("top")),
		&template.Subroutine{Squash: strategy.KeepAll(), Inner: template.Seq(template.Assistant("lost"), &template.Jump{Target: "top"})},
	)
	s := domain.NewSession()
	_, err := render(t, NewEngine(), root, s, nil)

	var jump *domain.JumpSignal
	require.ErrorAs(t, err, &jump)
	assert.Equal(t, []string{"top"}, contents(s.Messages()))
	target, ok := s.JumpTarget()
	assert.True(t, ok)
	assert.Equal(t, "top", target)
}

func TestSubroutine_ClosedInputSuspendsAtSubroutine(t *testing.T) {
	asked := 0
	ask := interaction.Func(func(context.Context, *domain.Session, string, string) (string, error) {
		asked++
		if asked > 1 {
			return "", io.EOF
		}
		return "first", nil
	})
	root := template.Seq(
		template.User("question"),
		template.Named("sub", &template.Subroutine{
			Squash: strategy.KeepAll(),
			Inner:  template.Seq(template.Named("q1", template.UserInput("", "")), template.Named("q2", template.UserInput("", ""))),
		}),
	)
	s := domain.NewSession()

	_, err := render(t, NewEngine(), root, s, &Context{Interaction: ask})
	var collab *domain.CollaboratorError
	require.ErrorAs(t, err, &collab)
	assert.Equal(t, "sub", collab.TemplateID)
	assert.Equal(t, domain.CollaboratorInteraction, collab.Collaborator)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"question"}, contents(s.Messages()))
}

type countingInteraction struct {
	inner ports.UserInteraction
	asks  int
}

func (c *countingInteraction) Ask(ctx context.Context, s *domain.Session, prompt, def string) (string, error) {
	c.asks++
	return c.inner.Ask(ctx, s, prompt, def)
}

func TestSubroutine_EnvironmentInteractionIsWrapped(t *testing.T) {
	var wrapped *countingInteraction
	rc := &Context{
		WrapInteraction: func(ui ports.UserInteraction) ports.UserInteraction {
			wrapped = &countingInteraction{inner: ui}
			return wrapped
		},
	}
	env := &template.Environment{Interaction: interaction.Func(func(context.Context, *domain.Session, string, string) (string, error) {
		return "from env", nil
	})}
	root := &template.Subroutine{Environment: env, Inner: template.UserInput("", "")}

	msgs, err := render(t, NewEngine(), root, domain.NewSession(), rc)
	require.NoError(t, err)
	assert.Equal(t, []string{"from env"}, contents(msgs))
	require.NotNil(t, wrapped)
	assert.Equal(t, 1, wrapped.asks)
}
