package tui

import (
	"fmt"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/tendril/pkg/runner"
)

// DefaultWordWrap is the column assistant markdown is wrapped at.
const DefaultWordWrap = 100

// NewRenderer returns a renderer of assistant markdown for terminals. The
// style follows the terminal background.
func NewRenderer(wordWrap int) (runner.ContentRenderer, error) {
	if wordWrap <= 0 {
		wordWrap = DefaultWordWrap
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render, nil
}
