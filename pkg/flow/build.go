package flow

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/adapters/process"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/hooks"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/registry"
	"github.com/aretw0/tendril/pkg/strategy"
	"github.com/aretw0/tendril/pkg/template"
)

// Builder turns definitions into template trees.
type Builder struct {
	tools     *registry.Registry
	models    map[string]ports.Model
	processes *process.Runner
	logger    *slog.Logger
}

// BuildOption configures a Builder.
type BuildOption func(*Builder)

// WithRegistry resolves the tool names of tool nodes.
func WithRegistry(reg *registry.Registry) BuildOption {
	return func(b *Builder) { b.tools = reg }
}

// WithModels resolves the model names used by nodes and squash strategies.
func WithModels(models map[string]ports.Model) BuildOption {
	return func(b *Builder) { b.models = models }
}

// WithProcesses backs exec hooks.
func WithProcesses(r *process.Runner) BuildOption {
	return func(b *Builder) { b.processes = r }
}

// WithLogger is the logger of debug hooks.
func WithLogger(logger *slog.Logger) BuildOption {
	return func(b *Builder) { b.logger = logger }
}

func NewBuilder(opts ...BuildOption) *Builder {
	b := &Builder{
		tools:  registry.New(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the prepared template tree of def. Every error is a
// *domain.ConfigurationError naming the offending node when it has an id.
func (b *Builder) Build(def *Definition) (template.Template, error) {
	if def == nil || def.Root == nil {
		return nil, &domain.ConfigurationError{Err: ErrNoRoot}
	}
	root, err := b.node(def.Root)
	if err != nil {
		return nil, err
	}
	if err := template.Prepare(root); err != nil {
		return nil, err
	}
	if err := template.CheckJumps(root); err != nil {
		return nil, err
	}
	return root, nil
}

func (b *Builder) fail(n *Node, format string, args ...any) error {
	return &domain.ConfigurationError{TemplateID: n.ID, Err: fmt.Errorf(format, args...)}
}

func (b *Builder) node(n *Node) (template.Template, error) {
	t, err := b.variant(n)
	if err != nil {
		return nil, err
	}
	base := baseOf(t)
	base.ID = n.ID
	if base.Before, err = b.hooks(n, n.Before); err != nil {
		return nil, err
	}
	if base.After, err = b.hooks(n, n.After); err != nil {
		return nil, err
	}
	return t, nil
}

func (b *Builder) variant(n *Node) (template.Template, error) {
	switch strings.ToLower(n.Type) {
	case "linear", "seq", "sequence":
		children, err := b.children(n)
		if err != nil {
			return nil, err
		}
		return &template.Linear{Templates: children}, nil

	case "loop":
		children, err := b.children(n)
		if err != nil {
			return nil, err
		}
		loop := &template.Loop{Templates: children, MaxIterations: n.MaxIterations}
		if n.Until != nil {
			if loop.ExitCondition, err = b.condition(n, n.Until); err != nil {
				return nil, err
			}
		}
		return loop, nil

	case "conditional", "if":
		if n.When == nil || n.Then == nil {
			return nil, b.fail(n, "conditional needs when and then")
		}
		cond, err := b.condition(n, n.When)
		if err != nil {
			return nil, err
		}
		c := &template.Conditional{Condition: cond}
		if c.Then, err = b.node(n.Then); err != nil {
			return nil, err
		}
		if n.Else != nil {
			if c.Else, err = b.node(n.Else); err != nil {
				return nil, err
			}
		}
		return c, nil

	case "system":
		return template.System(n.Content), nil
	case "assistant":
		return template.Assistant(n.Content), nil
	case "user":
		return template.User(n.Content), nil
	case "input":
		return template.UserInput(n.Content, n.Default), nil
	case "generate":
		m, err := b.model(n, n.Model)
		if err != nil {
			return nil, err
		}
		gen := template.GenerateWith(m)
		gen.Stream = n.Stream
		return gen, nil

	case "tool":
		if len(n.Tools) == 0 {
			return nil, b.fail(n, "tool node lists no tools")
		}
		inv := &template.ToolInvocation{}
		for _, name := range n.Tools {
			tool, ok := b.tools.Get(name)
			if !ok {
				return nil, b.fail(n, "%w: %s", domain.ErrToolNotFound, name)
			}
			inv.Tools = append(inv.Tools, tool)
		}
		var err error
		if inv.Model, err = b.model(n, n.Model); err != nil {
			return nil, err
		}
		return inv, nil

	case "subroutine":
		children, err := b.children(n)
		if err != nil {
			return nil, err
		}
		sub := &template.Subroutine{Inner: &template.Linear{Templates: children}}
		if len(children) == 1 {
			sub.Inner = children[0]
		}
		if sub.Init, err = b.init(n); err != nil {
			return nil, err
		}
		if sub.Squash, err = b.squash(n); err != nil {
			return nil, err
		}
		if sub.Model, err = b.model(n, n.Model); err != nil {
			return nil, err
		}
		return sub, nil

	case "jump":
		if n.Target == "" {
			return nil, b.fail(n, "jump needs a target")
		}
		j := &template.Jump{Target: n.Target}
		if n.When != nil {
			var err error
			if j.Condition, err = b.condition(n, n.When); err != nil {
				return nil, err
			}
		}
		return j, nil

	case "end":
		return &template.End{Farewell: n.Farewell}, nil
	case "break":
		return &template.Break{}, nil
	case "":
		return nil, b.fail(n, "node has no type")
	}
	return nil, b.fail(n, "unknown node type %q", n.Type)
}

func (b *Builder) children(n *Node) ([]template.Template, error) {
	if len(n.Templates) == 0 {
		return nil, b.fail(n, "%s needs templates", n.Type)
	}
	out := make([]template.Template, 0, len(n.Templates))
	for i := range n.Templates {
		t, err := b.node(&n.Templates[i])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// model resolves name. An empty name keeps the runtime model.
func (b *Builder) model(n *Node, name string) (ports.Model, error) {
	if name == "" {
		return nil, nil
	}
	m, ok := b.models[name]
	if !ok {
		return nil, b.fail(n, "unknown model %q (known: %s)", name, strings.Join(slices.Sorted(maps.Keys(b.models)), ", "))
	}
	return m, nil
}

func (b *Builder) condition(n *Node, c *Condition) (template.Condition, error) {
	var conds []template.Condition
	if c.LastMessageIs != nil {
		conds = append(conds, template.LastMessageIs(*c.LastMessageIs))
	}
	for _, k := range slices.Sorted(maps.Keys(c.MetaEquals)) {
		conds = append(conds, template.MetaEquals(k, c.MetaEquals[k]))
	}
	if c.MetaTrue != "" {
		conds = append(conds, template.MetaTrue(c.MetaTrue))
	}
	if c.Not != nil {
		inner, err := b.condition(n, c.Not)
		if err != nil {
			return nil, err
		}
		conds = append(conds, template.Not(inner))
	}
	if c.Always {
		conds = append(conds, template.Always)
	}
	switch len(conds) {
	case 0:
		return nil, b.fail(n, "empty condition")
	case 1:
		return conds[0], nil
	}
	// Several keys in one mapping must all hold.
	return func(s *domain.Session) bool {
		for _, c := range conds {
			if !c(s) {
				return false
			}
		}
		return true
	}, nil
}

func parseRoles(names []string) []domain.Role {
	roles := make([]domain.Role, len(names))
	for i, r := range names {
		roles[i] = domain.Role(strings.ToLower(r))
	}
	return roles
}

func (b *Builder) init(n *Node) (template.InitStrategy, error) {
	if n.Init == nil {
		return nil, nil
	}
	switch n.Init.Type {
	case "clean":
		return strategy.Clean(), nil
	case "inherit_system":
		return strategy.InheritSystem(), nil
	case "last_n":
		if n.Init.N <= 0 {
			return nil, b.fail(n, "last_n init needs n > 0")
		}
		return strategy.LastN(n.Init.N), nil
	case "roles":
		return strategy.Filtered(strategy.Roles(parseRoles(n.Init.Roles)...)), nil
	}
	return nil, b.fail(n, "unknown init strategy %q", n.Init.Type)
}

func (b *Builder) squash(n *Node) (template.SquashStrategy, error) {
	if n.Squash == nil {
		return nil, nil
	}
	sq := n.Squash
	switch sq.Type {
	case "last_message":
		return strategy.LastMessage(), nil
	case "roles":
		return strategy.FilterByRole(parseRoles(sq.Roles)...), nil
	case "all":
		return strategy.KeepAll(), nil
	case "llm_filter", "llm_summarize":
		m, err := b.model(n, sq.Model)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, b.fail(n, "%s squash needs a model", sq.Type)
		}
		var fn strategy.SquashFunc
		if sq.Type == "llm_filter" {
			fn, err = strategy.LLMFilter(m, sq.Prompt)
		} else {
			fn, err = strategy.LLMSummarize(m, sq.Prompt)
		}
		if err != nil {
			return nil, b.fail(n, "%s squash: %w", sq.Type, err)
		}
		return fn, nil
	}
	return nil, b.fail(n, "unknown squash strategy %q", sq.Type)
}

func (b *Builder) hooks(n *Node, defs []Hook) ([]template.Hook, error) {
	var out []template.Hook
	for _, h := range defs {
		hook, err := b.hook(n, h)
		if err != nil {
			return nil, err
		}
		out = append(out, hook...)
	}
	return out, nil
}

func (b *Builder) hook(n *Node, h Hook) ([]template.Hook, error) {
	var out []template.Hook
	for _, k := range slices.Sorted(maps.Keys(h.Set)) {
		out = append(out, hooks.Set(k, h.Set[k]))
	}
	if len(h.Reset) > 0 {
		out = append(out, hooks.ResetMetadata(h.Reset...))
	}
	if h.CountUp != "" {
		out = append(out, hooks.CountUp(h.CountUp))
	}
	if inc := h.Increment; inc != nil {
		by := inc.By
		if by == 0 {
			by = 1
		}
		out = append(out, hooks.Increment(inc.Key, inc.Initial, by))
	}
	if ex := h.ExtractCode; ex != nil {
		out = append(out, hooks.ExtractCodeBlock(ex.Key, ex.Lang))
	}
	if ex := h.Exec; ex != nil {
		if b.processes == nil {
			return nil, b.fail(n, "exec hook %q needs a process runner", ex.Tool)
		}
		codeKey := ex.CodeKey
		if codeKey == "" {
			codeKey = "code"
		}
		out = append(out, hooks.Exec(ex.Key, codeKey, ex.Tool, b.processes))
	}
	if j := h.JumpIf; j != nil {
		cond := template.Condition(template.Always)
		if j.When != nil {
			var err error
			if cond, err = b.condition(n, j.When); err != nil {
				return nil, err
			}
		}
		out = append(out, hooks.JumpIf(cond, j.Target))
	}
	if h.Debug != "" {
		out = append(out, hooks.Debug(b.logger, h.Debug))
	}
	if len(out) == 0 {
		return nil, b.fail(n, "empty hook")
	}
	return out, nil
}

// baseOf returns the shared fields of t.
func baseOf(t template.Template) *template.Base {
	switch v := t.(type) {
	case *template.Linear:
		return &v.Base
	case *template.Loop:
		return &v.Base
	case *template.Conditional:
		return &v.Base
	case *template.Message:
		return &v.Base
	case *template.ToolInvocation:
		return &v.Base
	case *template.Subroutine:
		return &v.Base
	case *template.Jump:
		return &v.Base
	case *template.End:
		return &v.Base
	case *template.Break:
		return &v.Base
	}
	panic(fmt.Sprintf("flow: unexpected template %T", t))
}
