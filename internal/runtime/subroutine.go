package runtime

import (
	"context"
	"errors"
	"io"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/strategy"
	"github.com/aretw0/tendril/pkg/template"
)

// renderSubroutine renders the inner template against a private child
// session and appends the squashed result to the parent in one batch. On
// failure, or when a jump leaves the subroutine, the child is dropped and
// the parent is left as it was. A termination still merges what was
// produced before ending the run.
func (e *Engine) renderSubroutine(ctx context.Context, sc *scope, t *template.Subroutine, cursor []int) error {
	if t.Model != nil && t.Environment != nil {
		return &domain.ConfigurationError{TemplateID: t.ID, Err: domain.ErrConflictingOverride}
	}
	var init template.InitStrategy = strategy.Clean()
	if t.Init != nil {
		init = t.Init
	}
	var squash template.SquashStrategy = strategy.LastMessage()
	if t.Squash != nil {
		squash = t.Squash
	}

	defer enter(sc, t.ID, 0)()

	child := init.Initialize(sc.session)
	if child == nil || child == sc.session {
		return &domain.ConfigurationError{TemplateID: t.ID, Err: errors.New("init strategy must return a new session")}
	}

	var collected []domain.Message
	childScope := &scope{
		rc:      childContext(sc.rc, t),
		session: child,
		depth:   sc.depth + 1,
		yield: func(m domain.Message, _ error) bool {
			collected = append(collected, m)
			return true
		},
	}

	_, rest := split(cursor)
	innerErr := e.render(ctx, childScope, t.Inner, rest)
	var (
		term *domain.TerminationSignal
		jump *domain.JumpSignal
	)
	switch {
	case innerErr == nil, isBreak(innerErr):
		innerErr = nil
	case errors.As(innerErr, &term):
	case errors.As(innerErr, &jump):
		sc.session.SetJumpTarget(jump.Target)
		e.logger.Debug("subroutine left by jump", "template_id", t.ID, "target", jump.Target)
		return innerErr
	case endOfInput(innerErr):
		// The child is discarded, so a later run must replay the whole
		// subroutine rather than the question that was left open.
		e.logger.Debug("subroutine suspended", "template_id", t.ID, "error", innerErr)
		return &domain.CollaboratorError{TemplateID: t.ID, Collaborator: domain.CollaboratorInteraction, Err: innerErr}
	default:
		e.logger.Debug("subroutine discarded", "template_id", t.ID, "error", innerErr)
		return innerErr
	}

	squashed, err := squash.Squash(ctx, collected)
	if err != nil {
		var collab *domain.CollaboratorError
		if errors.As(err, &collab) && collab.TemplateID == "" {
			collab.TemplateID = t.ID
		}
		return wrapFailure(t.ID, err)
	}
	merged := make([]domain.Message, len(squashed))
	for i, m := range squashed {
		merged[i] = m.Clone()
	}
	e.logger.Debug("subroutine squashed", "template_id", t.ID, "produced", len(collected), "kept", len(merged))
	if err := e.emit(ctx, sc, t.ID, merged...); err != nil {
		return err
	}
	return innerErr
}

// childContext derives the collaborators for a subroutine. The Environment
// override replaces every collaborator it sets; the Model override replaces
// only the model. Lookup always stays rooted at the top-level tree.
func childContext(parent *Context, t *template.Subroutine) *Context {
	rc := *parent
	if env := t.Environment; env != nil {
		if env.Model != nil {
			rc.Model = env.Model
		}
		if env.Interaction != nil {
			rc.Interaction = env.Interaction
			if parent.WrapInteraction != nil {
				rc.Interaction = parent.WrapInteraction(env.Interaction)
			}
		}
	}
	if t.Model != nil {
		rc.Model = t.Model
	}
	return &rc
}

// endOfInput reports whether the user closed the input stream.
func endOfInput(err error) bool {
	var collab *domain.CollaboratorError
	return errors.As(err, &collab) && collab.Collaborator == domain.CollaboratorInteraction && errors.Is(err, io.EOF)
}
