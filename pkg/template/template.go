package template

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// Kind tags each template variant.
type Kind string

const (
	KindLinear      Kind = "linear"
	KindLoop        Kind = "loop"
	KindConditional Kind = "conditional"
	KindJump        Kind = "jump"
	KindMessage     Kind = "message"
	KindTool        Kind = "tool"
	KindSubroutine  Kind = "subroutine"
	KindEnd         Kind = "end"
	KindBreak       Kind = "break"
)

// Hook transforms a session before or after a template renders. It returns
// the updated session, which may be the input itself or a Fork of it. A hook
// may append messages but never remove them.
type Hook func(ctx context.Context, s *domain.Session) (*domain.Session, error)

// Condition is a predicate over the session.
type Condition func(s *domain.Session) bool

// Template is a node of a flow. The set of implementations is closed.
type Template interface {
	TemplateID() string
	Kind() Kind
	// Children returns the nested templates in position order.
	Children() []Template
	Hooks() (before, after []Hook)
	base() *Base
}

// Base holds the configuration shared by every variant. It is immutable once
// the tree has been prepared.
type Base struct {
	// ID must be unique within the tree. Empty ids are generated by Prepare.
	ID     string
	Before []Hook
	After  []Hook
}

func (b *Base) TemplateID() string { return b.ID }

func (b *Base) Hooks() (before, after []Hook) { return b.Before, b.After }

func (b *Base) base() *Base { return b }

// Linear renders its templates in order.
type Linear struct {
	Base
	Templates []Template
}

func (t *Linear) Kind() Kind           { return KindLinear }
func (t *Linear) Children() []Template { return t.Templates }

// Loop renders its templates repeatedly. ExitCondition is checked after
// every full pass, so the body always runs at least once. MaxIterations caps
// the number of passes; reaching it is not an error. Without either, the
// loop stops after domain.DefaultMaxIterations passes.
type Loop struct {
	Base
	Templates     []Template
	ExitCondition Condition
	MaxIterations int
}

func (t *Loop) Kind() Kind           { return KindLoop }
func (t *Loop) Children() []Template { return t.Templates }

// Limit returns the effective iteration cap, or 0 for none.
func (t *Loop) Limit() int {
	if t.MaxIterations > 0 {
		return t.MaxIterations
	}
	if t.ExitCondition == nil {
		return domain.DefaultMaxIterations
	}
	return 0
}

// Conditional renders Then when Condition holds and Else otherwise. A nil
// Else renders nothing.
type Conditional struct {
	Base
	Condition Condition
	Then      Template
	Else      Template
}

func (t *Conditional) Kind() Kind { return KindConditional }

// Children returns Then at position 0 and Else, when present, at position 1.
func (t *Conditional) Children() []Template {
	if t.Else == nil {
		return []Template{t.Then}
	}
	return []Template{t.Then, t.Else}
}

// Jump transfers control to the template with id Target when Condition
// holds. A nil Condition always jumps.
type Jump struct {
	Base
	Target    string
	Condition Condition
}

func (t *Jump) Kind() Kind           { return KindJump }
func (t *Jump) Children() []Template { return nil }

// End optionally says farewell, then ends the conversation.
type End struct {
	Base
	Farewell string
}

func (t *End) Kind() Kind           { return KindEnd }
func (t *End) Children() []Template { return nil }

// Break stops the nearest enclosing Loop or Linear.
type Break struct {
	Base
}

func (t *Break) Kind() Kind           { return KindBreak }
func (t *Break) Children() []Template { return nil }
