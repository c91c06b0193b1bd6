package process

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// Tool exposes one registered command as a domain.Tool.
type Tool struct {
	runner *Runner
	spec   domain.ToolSpec
}

// Tool returns the registered command name as a tool, or false when it is
// not on the allow-list.
func (r *Runner) Tool(name string) (*Tool, bool) {
	proc, ok := r.registry[name]
	if !ok {
		return nil, false
	}
	return &Tool{
		runner: r,
		spec: domain.ToolSpec{
			Name:        name,
			Description: proc.Description,
			Arguments:   proc.Arguments,
		},
	}, true
}

// Tools returns every registered command as a tool, sorted by name.
func (r *Runner) Tools() []domain.Tool {
	names := r.Names()
	tools := make([]domain.Tool, 0, len(names))
	for _, name := range names {
		t, _ := r.Tool(name)
		tools = append(tools, t)
	}
	return tools
}

func (t *Tool) Spec() domain.ToolSpec { return t.spec }

// Execute runs the command. A JSON stdout is recorded in the result
// metadata under "output".
func (t *Tool) Execute(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
	out, err := t.runner.Run(ctx, t.spec.Name, args)
	if err != nil {
		return domain.ToolResult{}, err
	}
	result := domain.ToolResult{Content: out.Stdout}
	if out.Parsed != nil {
		result.Metadata = domain.Metadata{"output": out.Parsed}
	}
	return result, nil
}
