package runner

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// IOHandler defines how a run is presented to the outside world.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents a message that was just appended to the session.
	Output(ctx context.Context, msg domain.Message) error

	// Chunk presents a fragment of a message still being generated. The
	// complete message is passed to Output afterwards.
	Chunk(ctx context.Context, templateID string, fragment domain.Message) error

	// Input asks the user a question and returns the answer.
	Input(ctx context.Context, prompt, defaultAnswer string) (string, error)

	// SystemOutput presents a meta-message (status, policy prompts) that is
	// not part of the conversation.
	SystemOutput(ctx context.Context, msg string) error
}

// SessionObserver is implemented by handlers that want incremental session
// updates in addition to individual messages.
type SessionObserver interface {
	SessionChanged(ctx context.Context, diff *domain.SessionDiff) error
}

// ContentRenderer transforms assistant content before it is printed, for
// example markdown to ANSI.
type ContentRenderer func(string) (string, error)

// HandlerInteraction adapts an IOHandler to ports.UserInteraction.
type HandlerInteraction struct {
	Handler IOHandler
}

func (h HandlerInteraction) Ask(ctx context.Context, _ *domain.Session, prompt, defaultAnswer string) (string, error) {
	answer, err := h.Handler.Input(ctx, prompt, defaultAnswer)
	if err != nil {
		return "", err
	}
	if answer == "" {
		answer = defaultAnswer
	}
	return answer, nil
}

// diffTracker remembers the last snapshot sent to a SessionObserver.
type diffTracker struct {
	prev *domain.Snapshot
}

func (d *diffTracker) flush(ctx context.Context, h IOHandler, s *domain.Session) error {
	obs, ok := h.(SessionObserver)
	if !ok {
		return nil
	}
	snap := s.Snapshot()
	diff := domain.Diff(d.prev, snap)
	d.prev = &snap
	if diff == nil {
		return nil
	}
	return obs.SessionChanged(ctx, diff)
}
