package runtime

import (
	"context"
	"errors"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/template"
)

// enter pushes a stack frame for a control template and returns the
// function that pops it.
func enter(sc *scope, id string, pos int) func() {
	sc.session.Push(domain.StackFrame{TemplateID: id, Position: pos})
	return func() { sc.session.Pop() }
}

// split returns the start position and the remaining cursor for the child
// at that position.
func split(cursor []int) (int, []int) {
	if len(cursor) == 0 {
		return 0, nil
	}
	return cursor[0], cursor[1:]
}

func isBreak(err error) bool {
	var brk *domain.BreakSignal
	return errors.As(err, &brk)
}

func (e *Engine) renderLinear(ctx context.Context, sc *scope, t *template.Linear, cursor []int) error {
	start, rest := split(cursor)
	defer enter(sc, t.ID, start)()

	for i := start; i < len(t.Templates); i++ {
		sc.session.SetPosition(i)
		var sub []int
		if i == start {
			sub = rest
		}
		if err := e.render(ctx, sc, t.Templates[i], sub); err != nil {
			if isBreak(err) {
				e.logger.Debug("sequence stopped by break", "template_id", t.ID, "position", i)
				return nil
			}
			return err
		}
	}
	return nil
}

func (e *Engine) renderLoop(ctx context.Context, sc *scope, t *template.Loop, cursor []int) error {
	start, rest := split(cursor)
	defer enter(sc, t.ID, start)()

	limit := t.Limit()
	exitKey, iterKey := domain.LoopExitKey(t.ID), domain.LoopIterationsKey(t.ID)
	iterations := 0
	if len(cursor) > 0 && sc.session.Metadata().String(exitKey) == "" {
		// Resuming inside an unfinished loop keeps the passes already made.
		iterations, _ = sc.session.Metadata().Int(iterKey)
	} else {
		sc.session.SetMetadata(sc.session.Metadata().Without(exitKey))
	}
	sc.session.SetMeta(iterKey, iterations)
	reason := ""
	for reason == "" {
		for i := start; i < len(t.Templates); i++ {
			sc.session.SetPosition(i)
			var sub []int
			if i == start {
				sub = rest
			}
			if err := e.render(ctx, sc, t.Templates[i], sub); err != nil {
				if !isBreak(err) {
					return err
				}
				reason = domain.LoopExitBreak
				break
			}
		}
		start, rest = 0, nil
		if reason != "" {
			break
		}
		iterations++
		sc.session.SetMeta(iterKey, iterations)

		switch {
		case t.ExitCondition != nil && t.ExitCondition(sc.session):
			reason = domain.LoopExitCondition
		case limit > 0 && iterations >= limit:
			reason = domain.LoopExitMaxIter
			e.logger.Warn("loop reached its iteration cap", "template_id", t.ID, "max_iterations", limit)
		}
	}

	sc.session.SetMeta(exitKey, reason)
	e.logger.Debug("loop finished", "template_id", t.ID, "reason", reason, "iterations", iterations)
	return nil
}

func (e *Engine) renderConditional(ctx context.Context, sc *scope, t *template.Conditional, cursor []int) error {
	if len(cursor) > 0 {
		branch, rest := split(cursor)
		defer enter(sc, t.ID, branch)()
		return e.render(ctx, sc, t.Children()[branch], rest)
	}

	if t.Condition(sc.session) {
		defer enter(sc, t.ID, 0)()
		return e.render(ctx, sc, t.Then, nil)
	}
	if t.Else == nil {
		return nil
	}
	defer enter(sc, t.ID, 1)()
	return e.render(ctx, sc, t.Else, nil)
}

func (e *Engine) renderJump(ctx context.Context, sc *scope, t *template.Jump) error {
	if t.Condition != nil && !t.Condition(sc.session) {
		return nil
	}
	if t.Target != domain.EndTemplateID && sc.rc.Lookup != nil {
		if _, err := sc.rc.Lookup(t.Target); err != nil {
			return &domain.ConfigurationError{TemplateID: t.ID, Err: err}
		}
	}
	sc.session.SetJumpTarget(t.Target)
	e.logger.Info("jump requested", "template_id", t.ID, "target", t.Target)
	return &domain.JumpSignal{TemplateID: t.ID, Target: t.Target}
}

func (e *Engine) renderEnd(ctx context.Context, sc *scope, t *template.End) error {
	if t.Farewell != "" {
		content, err := e.interpolate(ctx, sc, t.Farewell)
		if err != nil {
			return wrapFailure(t.ID, err)
		}
		msg := domain.NewMessage(domain.RoleAssistant, content)
		if err := e.emit(ctx, sc, t.ID, msg); err != nil {
			return err
		}
	}
	e.logger.Info("end of conversation", "template_id", t.ID)
	return &domain.TerminationSignal{TemplateID: t.ID}
}
