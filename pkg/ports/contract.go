package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(
			domain.WithID(sessionID),
			domain.WithMessages(
				domain.NewMessage(domain.RoleSystem, "be brief"),
				domain.NewMessage(domain.RoleUser, "hello"),
			),
			domain.WithMetadata(map[string]any{"foo": "bar", "count": 42}),
		)
		session.Push(domain.StackFrame{TemplateID: "root", Position: 1})

		err := store.Save(ctx, sessionID, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.ID())
		require.Len(t, loaded.Messages(), 2)
		assert.Equal(t, "hello", loaded.Messages()[1].Content)
		assert.Equal(t, domain.RoleSystem, loaded.Messages()[0].Role)
		assert.Equal(t, "bar", loaded.Metadata()["foo"])
		// JSON-backed stores turn ints into floats; only existence is part of the contract.
		assert.NotNil(t, loaded.Metadata()["count"])
		assert.Equal(t, session.Stack(), loaded.Stack())
	})

	t.Run("Loaded session is detached", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Append(domain.NewMessage(domain.RoleAssistant, "not saved"))

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Len(t, again.Messages(), 2)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSession(domain.WithID(sessionID)))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(domain.WithID(id1)))
		_ = store.Save(ctx, id2, domain.NewSession(domain.WithID(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
