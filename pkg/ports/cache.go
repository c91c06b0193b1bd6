package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// CacheProvider stores model responses keyed by session content. It is
// consumed by model wrappers, never by templates.
type CacheProvider interface {
	Search(ctx context.Context, session *domain.Session) (domain.Message, bool, error)
	Add(ctx context.Context, session *domain.Session, msg domain.Message) error
}
