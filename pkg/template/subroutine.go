package template

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// InitStrategy builds a subroutine's child session from its parent. The
// returned session must not alias any mutable state of the parent.
type InitStrategy interface {
	Initialize(parent *domain.Session) *domain.Session
}

// SquashStrategy selects which of a subroutine's messages reach the parent.
// Implementations hold no per-call state.
type SquashStrategy interface {
	Squash(ctx context.Context, msgs []domain.Message) ([]domain.Message, error)
}

// Environment replaces the collaborators a subroutine renders with.
type Environment struct {
	Model       ports.Model
	Interaction ports.UserInteraction
}

// Subroutine renders Inner against an isolated child session and appends
// only the squashed result to the parent. Nil strategies default to a clean
// child and the last message.
type Subroutine struct {
	Base
	Inner  Template
	Init   InitStrategy
	Squash SquashStrategy
	// Model overrides only the model inside the subroutine.
	Model ports.Model
	// Environment overrides every collaborator inside the subroutine. It
	// cannot be combined with Model.
	Environment *Environment
}

func (t *Subroutine) Kind() Kind           { return KindSubroutine }
func (t *Subroutine) Children() []Template { return []Template{t.Inner} }
