package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// slowStore simulates IO latency to provoke races if locking is missing.
type slowStore struct {
	*memory.Store
	loads atomic.Int32
}

func newSlowStore() *slowStore { return &slowStore{Store: memory.NewStore()} }

func (s *slowStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	s.loads.Add(1)
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, id)
}

func (s *slowStore) Save(ctx context.Context, id string, session *domain.Session) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, id, session)
}

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	for i := range 1000 {
		id := fmt.Sprintf("session-%d", i)
		require.NoError(t, mgr.Save(ctx, domain.NewSession(domain.WithID(id))))
		require.NoError(t, mgr.Delete(ctx, id))
	}
	assert.Zero(t, mgr.activeLocks(), "per-id locks must be released")
}

func TestManager_LoadOrStartIsAtomic(t *testing.T) {
	store := newSlowStore()
	mgr := NewManager(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 4)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := mgr.LoadOrStart(ctx, "atomic-init", map[string]any{"n": i})
			if assert.NoError(t, err) {
				ids[i] = s.ID()
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, "atomic-init", id)
	}
	s, err := mgr.Load(ctx, "atomic-init")
	require.NoError(t, err)
	assert.Contains(t, s.Metadata(), "n")
	assert.Zero(t, mgr.activeLocks())
}

func TestManager_LoadMissing(t *testing.T) {
	_, err := NewManager(memory.NewStore()).Load(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

type appendRunner struct {
	content string
	err     error
	active  atomic.Int32
	overlap atomic.Bool
}

func (r *appendRunner) Run(_ context.Context, s *domain.Session) (*domain.Session, error) {
	if r.active.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.active.Add(-1)
	time.Sleep(2 * time.Millisecond)
	s.Append(domain.NewMessage(domain.RoleAssistant, r.content))
	return s, r.err
}

func TestManager_RunSerializesAndSaves(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	r := &appendRunner{content: "tick"}
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Run(ctx, "shared", nil, r)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, r.overlap.Load(), "runs on one session must not overlap")
	s, err := mgr.Load(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, 5, s.Len())
}

func TestManager_RunSavesOnFailure(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	boom := errors.New("boom")

	_, err := mgr.Run(context.Background(), "failing", nil, &appendRunner{content: "partial", err: boom})
	require.ErrorIs(t, err, boom)

	s, err := mgr.Load(context.Background(), "failing")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

type countingLocker struct {
	locks, unlocks atomic.Int32
	fail           error
}

func (l *countingLocker) Lock(context.Context, string, time.Duration) (ports.UnlockFunc, error) {
	if l.fail != nil {
		return nil, l.fail
	}
	l.locks.Add(1)
	return func(context.Context) error {
		l.unlocks.Add(1)
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	mgr := NewManager(memory.NewStore(), WithLocker(locker), WithLockTTL(time.Second))

	_, err := mgr.LoadOrStart(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), locker.locks.Load())
	assert.Equal(t, int32(1), locker.unlocks.Load())

	locker.fail = errors.New("redis down")
	err = mgr.Delete(context.Background(), "x")
	assert.ErrorIs(t, err, locker.fail)
}

func TestManager_Turn(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	turn, err := mgr.Turn(ctx, "t1", map[string]any{"lang": "en"}, &appendRunner{content: "hi"})
	require.NoError(t, err)
	require.NotNil(t, turn)
	assert.Len(t, turn.Response.Messages, 1)
	require.NotNil(t, turn.Diff)
	assert.Equal(t, "t1", turn.Diff.SessionID)
	assert.Len(t, turn.Diff.Appended, 1)

	stored, err := mgr.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Len())
}
