package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/runtime"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/strategy"
	"github.com/aretw0/tendril/pkg/template"
)

// Argument names accepted by a SubroutineTool.
const (
	ArgInput         = "input"
	ArgSystemMessage = "system_message"
)

// SubroutineTool runs a template as a tool. The tool input becomes a user
// message of a fresh session, optionally preceded by a system message, and
// the content of the last squashed message is the tool result.
type SubroutineTool struct {
	name        string
	description string
	sub         *template.Subroutine
	model       ports.Model
	interaction ports.UserInteraction
	logger      *slog.Logger
}

// SubroutineOption configures a SubroutineTool.
type SubroutineOption func(*SubroutineTool)

// WithInit replaces the default init, which keeps system and user messages.
func WithInit(init template.InitStrategy) SubroutineOption {
	return func(t *SubroutineTool) { t.sub.Init = init }
}

// WithSquash replaces the default squash, which keeps the last message.
func WithSquash(squash template.SquashStrategy) SubroutineOption {
	return func(t *SubroutineTool) { t.sub.Squash = squash }
}

// WithModel sets the model the inner template generates with.
func WithModel(m ports.Model) SubroutineOption {
	return func(t *SubroutineTool) { t.model = m }
}

// WithInteraction sets the user interaction of the inner template.
func WithInteraction(ui ports.UserInteraction) SubroutineOption {
	return func(t *SubroutineTool) { t.interaction = ui }
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) SubroutineOption {
	return func(t *SubroutineTool) { t.logger = logger }
}

// NewSubroutine wraps inner as a tool called name.
func NewSubroutine(name, description string, inner template.Template, opts ...SubroutineOption) (*SubroutineTool, error) {
	t := &SubroutineTool{
		name:        name,
		description: description,
		sub: template.Named(name, &template.Subroutine{
			Inner:  inner,
			Init:   strategy.Filtered(strategy.Roles(domain.RoleSystem, domain.RoleUser)),
			Squash: strategy.LastMessage(),
		}),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := template.Prepare(t.sub); err != nil {
		return nil, err
	}
	if err := template.CheckJumps(t.sub); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *SubroutineTool) Spec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        t.name,
		Description: t.description,
		Arguments: []domain.Argument{
			{Name: ArgInput, Type: "string", Description: "Input message for the subroutine", Required: true},
			{Name: ArgSystemMessage, Type: "string", Description: "Optional system message for the subroutine"},
		},
	}
}

// Execute renders the subroutine. Every squashed message is returned under
// the "messages" metadata key. An End inside the subroutine only ends the
// subroutine.
func (t *SubroutineTool) Execute(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
	parent := domain.NewSession()
	if sys, ok := args[ArgSystemMessage].(string); ok && sys != "" {
		parent.Append(domain.NewMessage(domain.RoleSystem, sys))
	}
	input, _ := args[ArgInput].(string)
	parent.Append(domain.NewMessage(domain.RoleUser, input))

	rc := &runtime.Context{
		Model:       t.model,
		Interaction: t.interaction,
		Lookup:      func(id string) (template.Path, error) { return template.Find(t.sub, id) },
	}
	engine := runtime.NewEngine(runtime.WithLogger(t.logger))

	var msgs []domain.Message
	for m, err := range engine.Render(ctx, t.sub, parent, rc) {
		if err == nil {
			msgs = append(msgs, m)
			continue
		}
		var jump *domain.JumpSignal
		switch {
		case errors.Is(err, domain.ErrEndOfConversation):
		case errors.As(err, &jump):
			return domain.ToolResult{}, fmt.Errorf("subroutine tool %q: jump to %q leaves the subroutine", t.name, jump.Target)
		default:
			return domain.ToolResult{}, err
		}
	}
	t.logger.Debug("subroutine tool finished", "tool", t.name, "messages", len(msgs))

	result := domain.ToolResult{Metadata: domain.Metadata{"messages": msgs}}
	if len(msgs) > 0 {
		result.Content = msgs[len(msgs)-1].Content
	}
	return result, nil
}
