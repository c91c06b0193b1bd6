package model

import (
	"context"
	"log/slog"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// Cached consults a cache before delegating to Inner and stores every fresh
// response. Calls that offer tools bypass the cache, since the answer
// depends on the offered set.
type Cached struct {
	Inner  ports.Model
	Cache  ports.CacheProvider
	Logger *slog.Logger
}

// NewCached wraps inner with cache.
func NewCached(inner ports.Model, cache ports.CacheProvider, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cached{Inner: inner, Cache: cache, Logger: logger}
}

func (c *Cached) Send(ctx context.Context, s *domain.Session, opts ...ports.CallOption) (domain.Message, error) {
	if len(ports.ApplyCallOptions(opts...).Tools) > 0 {
		return c.Inner.Send(ctx, s, opts...)
	}
	if msg, ok, err := c.Cache.Search(ctx, s); err != nil {
		c.Logger.Warn("cache lookup failed", "session_id", s.ID(), "error", err)
	} else if ok {
		c.Logger.Debug("cache hit", "session_id", s.ID())
		return msg, nil
	}
	msg, err := c.Inner.Send(ctx, s, opts...)
	if err != nil {
		return domain.Message{}, err
	}
	if err := c.Cache.Add(ctx, s, msg); err != nil {
		c.Logger.Warn("cache store failed", "session_id", s.ID(), "error", err)
	}
	return msg, nil
}
