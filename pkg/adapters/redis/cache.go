package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/model"
)

// Cache implements ports.CacheProvider on Redis, keyed by model.Key.
type Cache struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewCache creates a Cache. A zero ttl keeps entries until evicted by Redis.
func NewCache(client backend.UniversalClient, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(s *domain.Session) string {
	return c.prefix + "cache:" + model.Key(s)
}

func (c *Cache) Search(ctx context.Context, s *domain.Session) (domain.Message, bool, error) {
	raw, err := c.client.Get(ctx, c.key(s)).Bytes()
	if errors.Is(err, backend.Nil) {
		return domain.Message{}, false, nil
	}
	if err != nil {
		return domain.Message{}, false, fmt.Errorf("cache lookup: %w", err)
	}

	var msg domain.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.Message{}, false, fmt.Errorf("cache decode: %w", err)
	}
	return msg, true, nil
}

func (c *Cache) Add(ctx context.Context, s *domain.Session, msg domain.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(s), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}
