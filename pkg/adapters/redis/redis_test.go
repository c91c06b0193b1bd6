package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := setup(t)
	now := time.Now()
	store := redis.NewFromClient(client,
		redis.WithTTL(time.Second),
		redis.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "session-ttl", domain.NewSession(domain.WithID("session-ttl"))))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "session-ttl")

	mr.FastForward(2 * time.Second)
	now = now.Add(2 * time.Second)

	_, err = store.Load(ctx, "session-ttl")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "my-session", domain.NewSession()))

	assert.True(t, mr.Exists("custom:app:session:my-session"))
	assert.True(t, mr.Exists("custom:app:sessions"))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"my-session"}, ids)
}

func TestRedisStore_SessionNamedLikeIndex(t *testing.T) {
	_, client := setup(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sessions", domain.NewSession(domain.WithID("sessions"))))
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sessions"}, ids)
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "resource1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:resource1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:resource1"))
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := setup(t)
	first := redis.NewLocker(client, "test:")
	second := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := first.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = second.Lock(short, "shared", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock1(ctx))

	unlock2, err := second.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	defer func() { _ = unlock2(ctx) }()
	assert.True(t, mr.Exists("test:lock:shared"))
}

func TestRedisLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	fresh, err := locker.Lock(ctx, "k", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists("test:lock:k"), "stale unlock must not release the new owner's lock")
	require.NoError(t, fresh(ctx))
	assert.False(t, mr.Exists("test:lock:k"))
}

func TestRedisCache_SearchAdd(t *testing.T) {
	mr, client := setup(t)
	cache := redis.NewCache(client, "", time.Minute)
	ctx := context.Background()

	s := domain.NewSession()
	s.Append(domain.NewMessage(domain.RoleUser, "ping"))

	_, ok, err := cache.Search(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)

	reply := domain.NewMessage(domain.RoleAssistant, "pong").WithMeta("model", "mock")
	require.NoError(t, cache.Add(ctx, s, reply))

	// Same content under a different session id hits the same entry.
	other := domain.NewSession()
	other.Append(domain.NewMessage(domain.RoleUser, "ping"))
	got, ok, err := cache.Search(ctx, other)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pong", got.Content)
	assert.Equal(t, domain.RoleAssistant, got.Role)
	assert.Equal(t, "mock", got.Metadata["model"])

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Search(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)
}
