package hooks

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/template"
)

// JumpIf requests a jump to target when cond holds. Used as an after-hook it
// transfers control once the template has rendered.
func JumpIf(cond template.Condition, target string) template.Hook {
	return func(_ context.Context, s *domain.Session) (*domain.Session, error) {
		if !cond(s) {
			return s, nil
		}
		next := s.Fork()
		next.SetJumpTarget(target)
		return next, nil
	}
}
