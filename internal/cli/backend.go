package cli

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aretw0/tendril/pkg/adapters/file"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	redisadapter "github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/session"
)

// DefaultCacheTTL bounds Redis cache entries.
const DefaultCacheTTL = 24 * time.Hour

// Backend bundles the persistence collaborators of a command.
type Backend struct {
	Store ports.SessionStore
	// Locker and Cache are nil for the file store.
	Locker ports.DistributedLocker
	Cache  ports.CacheProvider
	close  func() error
}

// OpenBackend opens the Redis backend when opts.RedisURL is set, the memory
// store when opts.Memory is set and the file store under opts.Dir otherwise. Redaction and encryption wrap the
// store in that order.
func OpenBackend(opts BackendOptions) (*Backend, error) {
	mws, err := storeMiddleware(opts)
	if err != nil {
		return nil, err
	}

	if opts.RedisURL == "" && opts.Memory {
		return &Backend{
			Store: middleware.Chain(memory.NewStore(), mws...),
			close: func() error { return nil },
		}, nil
	}
	if opts.RedisURL == "" {
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		return &Backend{
			Store: middleware.Chain(file.New(filepath.Join(dir, file.DefaultDir)), mws...),
			close: func() error { return nil },
		}, nil
	}

	ropts, err := goredis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := goredis.NewClient(ropts)
	return &Backend{
		Store:  middleware.Chain(redisadapter.NewFromClient(client), mws...),
		Locker: redisadapter.NewLocker(client, ""),
		Cache:  redisadapter.NewCache(client, "", DefaultCacheTTL),
		close:  client.Close,
	}, nil
}

func storeMiddleware(opts BackendOptions) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(opts.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(opts.Redact...)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if opts.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(opts.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		mws = append(mws, enc)
	}
	return mws, nil
}

// Sessions returns a session manager over the backend.
func (b *Backend) Sessions(logger *slog.Logger) *session.Manager {
	opts := []session.Option{session.WithLogger(logger)}
	if b.Locker != nil {
		opts = append(opts, session.WithLocker(b.Locker))
	}
	return session.NewManager(b.Store, opts...)
}

func (b *Backend) Close() error { return b.close() }
