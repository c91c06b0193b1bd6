package runtime

import (
	"context"
	"fmt"
	"strings"
	"text/template"
)

// Interpolator expands placeholders in static content using session data.
type Interpolator func(ctx context.Context, text string, data map[string]any) (string, error)

// DefaultInterpolator renders text as a Go text/template. The data map
// exposes the session metadata under .metadata and the session id under
// .session_id. Text without "{{" is returned unchanged.
func DefaultInterpolator(_ context.Context, text string, data map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tpl, err := template.New("content").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse content: %w", err)
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render content: %w", err)
	}
	return sb.String(), nil
}

func (e *Engine) interpolate(ctx context.Context, sc *scope, text string) (string, error) {
	if e.interpolator == nil || text == "" {
		return text, nil
	}
	data := map[string]any{
		"metadata":   map[string]any(sc.session.Metadata()),
		"session_id": sc.session.ID(),
	}
	return e.interpolator(ctx, text, data)
}
