package registry

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/schema"
)

// Registry manages the tools available to templates and servers.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]domain.Tool
}

// New creates a registry holding tools.
func New(tools ...domain.Tool) *Registry {
	r := &Registry{tools: make(map[string]domain.Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool. A tool with the same name is replaced.
func (r *Registry) Register(tool domain.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Spec().Name] = tool
}

// Get looks a tool up by name.
func (r *Registry) Get(name string) (domain.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns every registered tool ordered by name.
func (r *Registry) Tools() []domain.Tool {
	r.mu.RLock()
	out := make([]domain.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Tool) int {
		return cmp.Compare(a.Spec().Name, b.Spec().Name)
	})
	return out
}

// Specs returns the spec of every registered tool ordered by name.
func (r *Registry) Specs() []domain.ToolSpec {
	tools := r.Tools()
	specs := make([]domain.ToolSpec, len(tools))
	for i, t := range tools {
		specs[i] = t.Spec()
	}
	return specs
}

// Execute validates args against the tool's spec and runs it.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (domain.ToolResult, error) {
	tool, ok := r.Get(name)
	if !ok {
		return domain.ToolResult{}, fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}
	if err := schema.ValidateArgs(tool.Spec(), args); err != nil {
		return domain.ToolResult{}, err
	}
	return tool.Execute(ctx, args)
}
