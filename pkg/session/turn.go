package session

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/runner"
)

// Turn is the outcome of one request against a stored session.
type Turn struct {
	Response *runner.RichResponse
	// Diff holds what the run changed, or nil when nothing did.
	Diff *domain.SessionDiff
}

// Turn runs r like Run and collects what the run appended. The returned
// Turn is set whenever the run started, including on failure.
func (m *Manager) Turn(ctx context.Context, sessionID string, initial map[string]any, r ports.FlowRunner) (*Turn, error) {
	var turn *Turn
	_, err := m.Run(ctx, sessionID, initial, flowFunc(func(ctx context.Context, s *domain.Session) (*domain.Session, error) {
		before := s.Snapshot()
		resp, err := runner.RunAndCollect(ctx, r, s)
		turn = &Turn{Response: resp, Diff: domain.Diff(&before, resp.Session.Snapshot())}
		return resp.Session, err
	}))
	return turn, err
}

type flowFunc func(ctx context.Context, s *domain.Session) (*domain.Session, error)

func (f flowFunc) Run(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	return f(ctx, s)
}
