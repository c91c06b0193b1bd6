package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tendril/pkg/domain"
)

// LoggingHooks logs lifecycle events. Template traffic goes to Debug, tool
// and jump traffic to Info.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTemplateEnter: func(ctx context.Context, e *domain.TemplateEvent) {
			logger.DebugContext(ctx, "template_enter", "session_id", e.SessionID, "template_id", e.TemplateID, "kind", e.Kind, "depth", e.Depth)
		},
		OnTemplateLeave: func(ctx context.Context, e *domain.TemplateEvent) {
			attrs := []any{"session_id", e.SessionID, "template_id", e.TemplateID}
			if e.Err != nil && !domain.IsControlSignal(e.Err) {
				attrs = append(attrs, "err", e.Err)
			}
			logger.DebugContext(ctx, "template_leave", attrs...)
		},
		OnModelCall: func(ctx context.Context, e *domain.ModelEvent) {
			logger.DebugContext(ctx, "model_call", "template_id", e.TemplateID, "duration", e.Duration, "cached", e.Cached)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.InfoContext(ctx, "tool_call", "session_id", e.SessionID, "tool_name", e.ToolName)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.InfoContext(ctx, "tool_return", "session_id", e.SessionID, "tool_name", e.ToolName, "is_error", e.IsError)
		},
		OnJump: func(ctx context.Context, e *domain.JumpEvent) {
			logger.InfoContext(ctx, "jump", "session_id", e.SessionID, "from", e.From, "to", e.To)
		},
	}
}
