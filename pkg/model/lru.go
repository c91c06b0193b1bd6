package model

import (
	"container/list"
	"context"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/aretw0/tendril/pkg/domain"
)

// Key derives a cache key from the role and content of every message in the
// session. Metadata does not take part.
func Key(s *domain.Session) string {
	d := xxhash.New()
	for _, m := range s.Messages() {
		_, _ = d.WriteString(string(m.Role))
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(m.Content)
		_, _ = d.Write([]byte{0})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

type lruEntry struct {
	key string
	msg domain.Message
}

// LRU is an in-memory ports.CacheProvider holding at most Capacity entries.
type LRU struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

// NewLRU creates an LRU cache. A capacity below 1 is treated as 1.
func NewLRU(capacity int) *LRU {
	return &LRU{
		capacity: max(capacity, 1),
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (c *LRU) Search(_ context.Context, s *domain.Session) (domain.Message, bool, error) {
	key := Key(s)
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return domain.Message{}, false, nil
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).msg.Clone(), true, nil
}

func (c *LRU) Add(_ context.Context, s *domain.Session, msg domain.Message) error {
	key := Key(s)
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).msg = msg.Clone()
		c.order.MoveToFront(el)
		return nil
	}
	c.items[key] = c.order.PushFront(&lruEntry{key: key, msg: msg.Clone()})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry).key)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
