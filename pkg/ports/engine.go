package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// FlowRunner runs a configured flow against a session and returns the
// session as it stood when the run ended. Adapters such as the HTTP and MCP
// servers depend on this instead of a concrete runner.
type FlowRunner interface {
	Run(ctx context.Context, session *domain.Session) (*domain.Session, error)
}

// RunnerFactory builds a fresh FlowRunner whose user questions are answered
// by ui. Servers call it once per request.
type RunnerFactory func(ui UserInteraction) FlowRunner
