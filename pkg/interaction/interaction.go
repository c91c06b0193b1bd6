package interaction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
)

// ErrNoScriptedAnswer is returned when a double has nothing to answer with.
var ErrNoScriptedAnswer = errors.New("no scripted answer")

// Scripted answers from a table keyed by the content of the last
// non-control message.
type Scripted struct {
	Answers map[string]string
}

// NewScripted creates a Scripted interaction.
func NewScripted(answers map[string]string) *Scripted {
	return &Scripted{Answers: answers}
}

func (s *Scripted) Ask(_ context.Context, session *domain.Session, _, _ string) (string, error) {
	last, ok := session.LastNonControl()
	if !ok {
		return "", fmt.Errorf("%w: empty session", ErrNoScriptedAnswer)
	}
	answer, ok := s.Answers[last.Content]
	if !ok {
		return "", fmt.Errorf("%w for %q", ErrNoScriptedAnswer, last.Content)
	}
	return answer, nil
}

// Echo answers with the content of the last non-control message.
type Echo struct{}

func (Echo) Ask(_ context.Context, session *domain.Session, _, _ string) (string, error) {
	last, _ := session.LastNonControl()
	return last.Content, nil
}

// DefaultOrEcho answers with the default when there is one and echoes
// otherwise.
type DefaultOrEcho struct{}

func (DefaultOrEcho) Ask(ctx context.Context, session *domain.Session, prompt, defaultAnswer string) (string, error) {
	if defaultAnswer != "" {
		return defaultAnswer, nil
	}
	return Echo{}.Ask(ctx, session, prompt, defaultAnswer)
}

// Queue hands out its answers in order and fails once they run out. It is
// safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	answers []string
	prompts []string
	eof     bool
}

// NewQueue creates a Queue interaction.
func NewQueue(answers ...string) *Queue {
	return &Queue{answers: answers}
}

// NewInput is a Queue that reports io.EOF once its answers run out, which a
// runner treats as the user closing the input.
func NewInput(answers ...string) *Queue {
	return &Queue{answers: answers, eof: true}
}

func (q *Queue) Ask(ctx context.Context, _ *domain.Session, prompt, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prompts = append(q.prompts, prompt)
	if len(q.answers) == 0 {
		if q.eof {
			return "", io.EOF
		}
		return "", fmt.Errorf("%w: queue exhausted", ErrNoScriptedAnswer)
	}
	next := q.answers[0]
	q.answers = q.answers[1:]
	return next, nil
}

// Prompts returns every prompt asked so far.
func (q *Queue) Prompts() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.prompts...)
}

// Func adapts a function to ports.UserInteraction.
type Func func(ctx context.Context, session *domain.Session, prompt, defaultAnswer string) (string, error)

func (f Func) Ask(ctx context.Context, session *domain.Session, prompt, defaultAnswer string) (string, error) {
	return f(ctx, session, prompt, defaultAnswer)
}
