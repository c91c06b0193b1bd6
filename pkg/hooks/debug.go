package hooks

import (
	"context"
	"log/slog"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/template"
)

// Debug logs the session state at debug level and changes nothing.
func Debug(logger *slog.Logger, msg string) template.Hook {
	return func(ctx context.Context, s *domain.Session) (*domain.Session, error) {
		var position string
		if stack := s.Stack(); len(stack) > 0 {
			position = stack[len(stack)-1].TemplateID
		}
		logger.DebugContext(ctx, msg,
			"session_id", s.ID(),
			"template_id", position,
			"messages", s.Len(),
			"metadata", map[string]any(s.Metadata()),
		)
		return s, nil
	}
}
