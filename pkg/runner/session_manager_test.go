package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/template"
)

func TestSessionManager_LoadOrStart(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	sm := runner.NewSessionManager(store)

	s, loaded, err := sm.LoadOrStart(ctx, "abc", map[string]any{"lang": "en"})
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, "abc", s.ID())
	assert.Equal(t, "en", s.Metadata()["lang"])

	s.Append(domain.NewMessage(domain.RoleUser, "hi"))
	require.NoError(t, sm.Save(ctx, s))

	again, loaded, err := sm.LoadOrStart(ctx, "abc", map[string]any{"lang": "pt"})
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "en", again.Metadata()["lang"], "resumed sessions keep their metadata")
	assert.Equal(t, 1, again.Len())
}

func TestSessionManager_EphemeralSession(t *testing.T) {
	store := memory.NewStore()
	s, loaded, err := runner.NewSessionManager(store).LoadOrStart(context.Background(), "", nil)
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.NotEmpty(t, s.ID())

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRunAndCollect(t *testing.T) {
	s := domain.NewSession()
	s.Append(domain.NewMessage(domain.RoleUser, "earlier"))

	resp, err := runner.RunAndCollect(context.Background(), runner.New(template.Assistant("now")), s)
	require.NoError(t, err)
	assert.True(t, resp.Terminal)
	assert.Empty(t, resp.Error)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "now", resp.Messages[0].Content)
	assert.Equal(t, 2, resp.Session.Len())
}

func TestRunAndCollect_Failure(t *testing.T) {
	root := template.Seq(template.Assistant("a"), &template.Jump{Target: "missing"})
	resp, err := runner.RunAndCollect(context.Background(), runner.New(root), nil)

	var runErr *runner.RunError
	require.True(t, errors.As(err, &runErr))
	assert.True(t, resp.Terminal)
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, resp.Messages)
}
