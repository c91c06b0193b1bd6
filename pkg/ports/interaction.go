package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// UserInteraction answers user-input steps. Ask blocks until an answer is
// available. An empty defaultAnswer means no default.
type UserInteraction interface {
	Ask(ctx context.Context, session *domain.Session, prompt string, defaultAnswer string) (string, error)
}
