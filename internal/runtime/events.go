package runtime

import (
	"context"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/template"
)

func (e *Engine) emitTemplateEnter(ctx context.Context, sc *scope, t template.Template) {
	e.logger.Debug("enter template", "template_id", t.TemplateID(), "kind", t.Kind(), "depth", sc.depth)
	if e.hooks.OnTemplateEnter == nil {
		return
	}
	e.hooks.OnTemplateEnter(ctx, &domain.TemplateEvent{
		EventBase:  domain.NewEventBase(domain.EventTemplateEnter, sc.session.ID()),
		TemplateID: t.TemplateID(),
		Kind:       string(t.Kind()),
		Depth:      sc.depth,
	})
}

func (e *Engine) emitTemplateLeave(ctx context.Context, sc *scope, t template.Template, err error) {
	e.logger.Debug("leave template", "template_id", t.TemplateID(), "kind", t.Kind(), "depth", sc.depth)
	if e.hooks.OnTemplateLeave == nil {
		return
	}
	e.hooks.OnTemplateLeave(ctx, &domain.TemplateEvent{
		EventBase:  domain.NewEventBase(domain.EventTemplateLeave, sc.session.ID()),
		TemplateID: t.TemplateID(),
		Kind:       string(t.Kind()),
		Depth:      sc.depth,
		Err:        err,
	})
}

func (e *Engine) emitMessage(ctx context.Context, sc *scope, templateID string, msg domain.Message) {
	if e.hooks.OnMessage == nil {
		return
	}
	e.hooks.OnMessage(ctx, &domain.MessageEvent{
		EventBase:  domain.NewEventBase(domain.EventMessage, sc.session.ID()),
		TemplateID: templateID,
		Depth:      sc.depth,
		Message:    msg,
	})
}

func (e *Engine) emitModelCall(ctx context.Context, sc *scope, templateID string, d time.Duration, err error) {
	if e.hooks.OnModelCall == nil {
		return
	}
	e.hooks.OnModelCall(ctx, &domain.ModelEvent{
		EventBase:  domain.NewEventBase(domain.EventModelCall, sc.session.ID()),
		TemplateID: templateID,
		Duration:   d,
		Err:        err,
	})
}

func (e *Engine) emitToolCall(ctx context.Context, sc *scope, templateID string, call domain.ToolCall) {
	e.logger.Debug("tool call", "template_id", templateID, "tool", call.Name)
	if e.hooks.OnToolCall == nil {
		return
	}
	e.hooks.OnToolCall(ctx, &domain.ToolEvent{
		EventBase:  domain.NewEventBase(domain.EventToolCall, sc.session.ID()),
		TemplateID: templateID,
		ToolName:   call.Name,
		Input:      call.Args,
	})
}

func (e *Engine) emitToolReturn(ctx context.Context, sc *scope, templateID, name string, result domain.ToolResult, err error) {
	if e.hooks.OnToolReturn == nil {
		return
	}
	ev := &domain.ToolEvent{
		EventBase:  domain.NewEventBase(domain.EventToolReturn, sc.session.ID()),
		TemplateID: templateID,
		ToolName:   name,
		Output:     result.Content,
		IsError:    err != nil,
	}
	if err != nil {
		ev.Output = err.Error()
	}
	e.hooks.OnToolReturn(ctx, ev)
}
