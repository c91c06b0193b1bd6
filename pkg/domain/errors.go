package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrTemplateNotFound is returned when a template id cannot be resolved in the tree.
var ErrTemplateNotFound = errors.New("template not found")

// ErrDuplicateTemplateID is returned when two templates in one tree share an id.
var ErrDuplicateTemplateID = errors.New("duplicate template id")

// ErrReservedTemplateID is returned when a template claims a reserved id such as END.
var ErrReservedTemplateID = errors.New("reserved template id")

// ErrConflictingOverride is returned when a subroutine sets both a runtime and a model override.
var ErrConflictingOverride = errors.New("conflicting override options")

// ErrTooManyMessages stops a run that would exceed its message budget.
var ErrTooManyMessages = errors.New("message limit exceeded")

// ErrToolNotFound is returned when a tool name is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ErrEndOfConversation is the cause carried by every TerminationSignal.
var ErrEndOfConversation = errors.New("end of conversation")

// ConfigurationError reports an invalid template tree or option set. It is
// always fatal.
type ConfigurationError struct {
	TemplateID string
	Err        error
}

func (e *ConfigurationError) Error() string {
	if e.TemplateID == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error at %q: %v", e.TemplateID, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// UnknownToolError is returned when the model requests a tool that the
// rendering template does not offer.
type UnknownToolError struct {
	TemplateID string
	Tool       string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("template %q: unknown tool %q", e.TemplateID, e.Tool)
}

func (e *UnknownToolError) Unwrap() error { return ErrToolNotFound }

// ValidationError reports a violated invariant, either in a session's
// message list or in tool arguments.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("validation failed for %q: %s: %v", e.Field, e.Reason, e.Err)
	case e.Field != "":
		return fmt.Sprintf("validation failed for %q: %s", e.Field, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("validation failed: %s: %v", e.Reason, e.Err)
	default:
		return fmt.Sprintf("validation failed at message %d: %s", e.Index, e.Reason)
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CollaboratorError wraps a failure from the model, the user interaction or
// a tool, tagged with the template that was rendering.
type CollaboratorError struct {
	TemplateID   string
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed in template %q: %v", e.Collaborator, e.TemplateID, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Collaborator names used in CollaboratorError.
const (
	CollaboratorModel       = "model"
	CollaboratorInteraction = "user_interaction"
	CollaboratorTool        = "tool"
)

// TerminationSignal ends a run cleanly. It is not a failure.
type TerminationSignal struct {
	TemplateID string
}

func (e *TerminationSignal) Error() string {
	return fmt.Sprintf("conversation ended by %q", e.TemplateID)
}

func (e *TerminationSignal) Unwrap() error { return ErrEndOfConversation }

// JumpSignal abandons the current progression so the runner can resume at
// Target.
type JumpSignal struct {
	TemplateID string
	Target     string
}

func (e *JumpSignal) Error() string {
	return fmt.Sprintf("jump from %q to %q", e.TemplateID, e.Target)
}

// BreakSignal stops the nearest enclosing loop or sequence.
type BreakSignal struct {
	TemplateID string
}

func (e *BreakSignal) Error() string {
	return fmt.Sprintf("break from %q", e.TemplateID)
}

// RenderError tags a failure that carries no template context of its own
// (a hook or condition returning an error) with the active template id.
type RenderError struct {
	TemplateID string
	Err        error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("template %q: %v", e.TemplateID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// IsControlSignal reports whether err is a documented control-flow signal
// (termination, jump or break) rather than a failure.
func IsControlSignal(err error) bool {
	var term *TerminationSignal
	var jump *JumpSignal
	var brk *BreakSignal
	return errors.As(err, &term) || errors.As(err, &jump) || errors.As(err, &brk)
}
