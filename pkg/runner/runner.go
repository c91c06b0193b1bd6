package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/runtime"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/template"
)

// Runner drives a template tree against a session until it terminates or
// fails. A Runner executes one run at a time.
type Runner struct {
	root         template.Template
	model        ports.Model
	interaction  ports.UserInteraction
	handler      IOHandler
	store        ports.SessionStore
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	interceptor  ToolInterceptor
	interpolator runtime.Interpolator
	maxMessages  int
	maxJumps     int

	prepareOnce sync.Once
	prepareErr  error

	running atomic.Bool
	mu      sync.RWMutex
	state   State
}

var _ ports.FlowRunner = (*Runner)(nil)

// New creates a Runner for root.
func New(root template.Template, opts ...Option) *Runner {
	r := &Runner{
		root:     root,
		logger:   logging.NewNop(),
		maxJumps: DefaultMaxJumps,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the template tree the runner drives.
func (r *Runner) Root() template.Template { return r.root }

// State returns the lifecycle state of the current or last run.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	prev := r.state
	r.state = s
	r.mu.Unlock()
	if prev != s {
		r.logger.Debug("runner state", "from", prev, "to", s)
	}
}

// Prepare validates the tree and assigns missing ids. Run calls it once.
func (r *Runner) Prepare() error {
	r.prepareOnce.Do(func() {
		if err := template.Prepare(r.root); err != nil {
			r.prepareErr = err
			return
		}
		r.prepareErr = template.CheckJumps(r.root)
	})
	return r.prepareErr
}

// Run renders the root template against s, or a new session when s is nil.
// A session carrying a pending jump target resumes at that target. When the
// user closes the input, the run terminates and the session keeps the
// waiting template as its jump target. Reaching the message cap ends the
// run the same way, without a jump target. Run returns the session in every
// case; a failure is a *RunError.
func (r *Runner) Run(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	if !r.running.CompareAndSwap(false, true) {
		return s, ErrBusy
	}
	defer r.running.Store(false)

	if s == nil {
		s = domain.NewSession()
	}
	r.setState(StateRunning)
	if err := r.Prepare(); err != nil {
		return s, r.fail(ctx, s, "", err)
	}
	if err := s.Validate(); err != nil {
		return s, r.fail(ctx, s, "", err)
	}

	active := &activeTemplate{}
	engine := runtime.NewEngine(
		runtime.WithLogger(r.logger),
		runtime.WithLifecycleHooks(domain.ComposeHooks(active.hooks(), r.hooks)),
		runtime.WithInterpolator(r.resolveInterpolator()),
	)
	start := s.Len()
	rc := r.runtimeContext(start)

	var resume *template.Path
	if target, ok := s.JumpTarget(); ok {
		path, done, err := r.resolveJump(s, target)
		if err != nil {
			return s, r.fail(ctx, s, "", err)
		}
		if done {
			return s, r.terminate(ctx, s)
		}
		resume = path
	}

	jumps := 0
	diffs := &diffTracker{}
	for {
		seq := engine.Render(ctx, r.root, s, rc)
		if resume != nil {
			seq = engine.Resume(ctx, r.root, *resume, s, rc)
		}

		runErr := r.consume(ctx, s, seq, diffs)
		if errors.Is(runErr, domain.ErrTooManyMessages) {
			r.logger.Warn("message limit reached, ending run", "session_id", s.ID(), "max_messages", r.maxMessages)
			runErr = nil
		}

		var (
			jump *domain.JumpSignal
			brk  *domain.BreakSignal
		)
		switch {
		case runErr == nil, errors.As(runErr, &brk),
			errors.Is(runErr, domain.ErrEndOfConversation), isEndOfInput(runErr):
			s.ResetStack(nil)
			if id := templateIDOf(runErr); id != "" && isEndOfInput(runErr) {
				// The next run asks the same question again.
				s.SetJumpTarget(id)
				r.logger.Info("input closed, run suspended", "session_id", s.ID(), "template_id", id)
			}
			if r.handler != nil {
				if err := diffs.flush(ctx, r.handler, s); err != nil {
					return s, r.fail(ctx, s, "", err)
				}
			}
			return s, r.terminate(ctx, s)

		case errors.As(runErr, &jump):
			jumps++
			if r.maxJumps > 0 && jumps > r.maxJumps {
				err := &domain.ConfigurationError{TemplateID: jump.TemplateID, Err: fmt.Errorf("more than %d jumps", r.maxJumps)}
				return s, r.fail(ctx, s, jump.TemplateID, err)
			}
			r.emitJump(ctx, s, jump)
			path, done, err := r.resolveJump(s, jump.Target)
			if err != nil {
				return s, r.fail(ctx, s, jump.TemplateID, err)
			}
			if done {
				return s, r.terminate(ctx, s)
			}
			resume = path
			if err := r.save(ctx, s); err != nil {
				return s, r.fail(ctx, s, jump.TemplateID, err)
			}

		default:
			return s, r.fail(ctx, s, active.id(), runErr)
		}
	}
}

// consume forwards every yielded message to the handler and saves the
// session after each one.
func (r *Runner) consume(ctx context.Context, s *domain.Session, seq iter.Seq2[domain.Message, error], diffs *diffTracker) error {
	for msg, err := range seq {
		if err != nil {
			return err
		}
		if r.handler != nil {
			if err := r.handler.Output(ctx, msg); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
			if err := diffs.flush(ctx, r.handler, s); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		}
		if err := r.save(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// resolveJump clears the pending jump and locates its target. done is true
// for the reserved END target.
func (r *Runner) resolveJump(s *domain.Session, target string) (*template.Path, bool, error) {
	s.ClearJumpTarget()
	s.ResetStack(nil)
	if target == domain.EndTemplateID {
		return nil, true, nil
	}
	path, err := template.Find(r.root, target)
	if err != nil {
		return nil, false, &domain.ConfigurationError{TemplateID: target, Err: err}
	}
	r.logger.Info("resuming at jump target", "session_id", s.ID(), "target", target)
	return &path, false, nil
}

func (r *Runner) emitJump(ctx context.Context, s *domain.Session, jump *domain.JumpSignal) {
	if r.hooks.OnJump == nil {
		return
	}
	r.hooks.OnJump(ctx, &domain.JumpEvent{
		EventBase: domain.NewEventBase(domain.EventJump, s.ID()),
		From:      jump.TemplateID,
		To:        jump.Target,
	})
}

func (r *Runner) terminate(ctx context.Context, s *domain.Session) error {
	s.ResetStack(nil)
	r.setState(StateTerminated)
	r.logger.Info("run terminated", "session_id", s.ID(), "messages", s.Len())
	if err := r.save(ctx, s); err != nil {
		r.setState(StateFailed)
		return &RunError{Session: s, Err: err}
	}
	return nil
}

func (r *Runner) fail(ctx context.Context, s *domain.Session, templateID string, err error) error {
	if id := templateIDOf(err); id != "" {
		templateID = id
	}
	r.setState(StateFailed)
	r.logger.Error("run failed", "session_id", s.ID(), "template_id", templateID, "error", err)
	// Persist the partial session; a context error must not prevent it.
	if saveErr := r.save(context.WithoutCancel(ctx), s); saveErr != nil {
		err = errors.Join(err, saveErr)
	}
	return &RunError{TemplateID: templateID, Session: s, Err: err}
}

func (r *Runner) save(ctx context.Context, s *domain.Session) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.Save(ctx, s.ID(), s); err != nil {
		return fmt.Errorf("critical persistence error: %w", err)
	}
	return nil
}

// runtimeContext builds the collaborators of one run. start is the session
// length when the run began; the message cap counts from there.
func (r *Runner) runtimeContext(start int) *runtime.Context {
	rc := &runtime.Context{
		Model:  r.model,
		Lookup: func(id string) (template.Path, error) { return template.Find(r.root, id) },
		WrapInteraction: func(ui ports.UserInteraction) ports.UserInteraction {
			return &trackedInteraction{runner: r, inner: ui}
		},
	}
	if ui := r.resolveInteraction(); ui != nil {
		rc.Interaction = rc.WrapInteraction(ui)
	}
	if r.maxMessages > 0 {
		rc.Admit = func(s *domain.Session, n int) error {
			if s.Len()-start+n > r.maxMessages {
				return fmt.Errorf("%w: limit is %d", domain.ErrTooManyMessages, r.maxMessages)
			}
			return nil
		}
	}
	if r.handler != nil {
		rc.OnChunk = func(ctx context.Context, templateID string, fragment domain.Message) {
			if err := r.handler.Chunk(ctx, templateID, fragment); err != nil {
				r.logger.Warn("chunk output failed", "template_id", templateID, "error", err)
			}
		}
	}
	if r.interceptor != nil {
		rc.ApproveTool = r.interceptor
	}
	return rc
}

func (r *Runner) resolveInteraction() ports.UserInteraction {
	if r.interaction != nil {
		return r.interaction
	}
	if r.handler != nil {
		return HandlerInteraction{Handler: r.handler}
	}
	return nil
}

func (r *Runner) resolveInterpolator() runtime.Interpolator {
	if r.interpolator != nil {
		return r.interpolator
	}
	return runtime.DefaultInterpolator
}

// isEndOfInput reports whether the user closed the input stream, which
// ends the run cleanly.
func isEndOfInput(err error) bool {
	var collab *domain.CollaboratorError
	return errors.As(err, &collab) && collab.Collaborator == domain.CollaboratorInteraction && errors.Is(err, io.EOF)
}

// trackedInteraction moves the runner into AWAITING_USER_INPUT for the
// duration of every question.
type trackedInteraction struct {
	runner *Runner
	inner  ports.UserInteraction
}

func (t *trackedInteraction) Ask(ctx context.Context, s *domain.Session, prompt, defaultAnswer string) (string, error) {
	t.runner.setState(StateAwaitingUserInput)
	defer t.runner.setState(StateRunning)
	return t.inner.Ask(ctx, s, prompt, defaultAnswer)
}

// activeTemplate remembers the most recently entered template, which is the
// one executing when a failure without its own template id surfaces.
type activeTemplate struct {
	mu      sync.Mutex
	current string
}

func (a *activeTemplate) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTemplateEnter: func(_ context.Context, e *domain.TemplateEvent) {
			a.mu.Lock()
			a.current = e.TemplateID
			a.mu.Unlock()
		},
	}
}

func (a *activeTemplate) id() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}
