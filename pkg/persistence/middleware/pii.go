package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware returns a middleware that masks, before saving, every
// metadata value whose key matches one of the patterns. Nested maps are
// searched too. The in-memory session is left untouched.
func NewPIIMiddleware(patterns ...string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, s *domain.Session) error {
	snap := s.Snapshot()
	snap.Metadata = m.mask(snap.Metadata.Clone())
	return m.next.Save(ctx, sessionID, domain.Restore(snap))
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// mask rewrites md in place. md must be a private copy.
func (m *piiMiddleware) mask(md map[string]any) map[string]any {
	for k, v := range md {
		if m.matches(k) {
			md[k] = Mask
			continue
		}
		switch sub := v.(type) {
		case domain.Metadata:
			md[k] = domain.Metadata(m.mask(sub))
		case map[string]any:
			md[k] = m.mask(sub)
		}
	}
	return md
}
