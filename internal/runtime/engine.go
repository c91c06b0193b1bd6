package runtime

import (
	"context"
	"errors"
	"iter"
	"log/slog"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/template"
)

// Context bundles the collaborators a render call needs. It is passed down
// explicitly; nothing is read from ambient state.
type Context struct {
	Model       ports.Model
	Interaction ports.UserInteraction
	// Lookup resolves a template id against the root of the tree.
	Lookup func(id string) (template.Path, error)
	// OnChunk receives streamed fragments of a message being generated.
	OnChunk func(ctx context.Context, templateID string, fragment domain.Message)
	// ApproveTool, when set, is consulted before every tool execution. A
	// denied call is not executed; the returned result is recorded instead.
	ApproveTool func(ctx context.Context, call domain.ToolCall) (bool, domain.ToolResult, error)
	// WrapInteraction decorates an Interaction that a subroutine installs
	// in place of the one above.
	WrapInteraction func(ports.UserInteraction) ports.UserInteraction
	// Admit is consulted before n messages are appended to the outermost
	// session. A non-nil error stops the render with nothing appended.
	Admit func(s *domain.Session, n int) error
}

// Engine renders template trees. It holds configuration only; all per-render
// state lives on the stack of the render call.
type Engine struct {
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	interpolator Interpolator
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// WithInterpolator replaces the text/template interpolation of static
// message content.
func WithInterpolator(interp Interpolator) Option {
	return func(e *Engine) { e.interpolator = interp }
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:       logging.NewNop(),
		interpolator: DefaultInterpolator,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// errStopped unwinds a render when the consumer stops iterating.
var errStopped = errors.New("render stopped by consumer")

// scope is where a render appends: the session being rendered and, for the
// outermost session only, the consumer receiving each message.
type scope struct {
	rc      *Context
	session *domain.Session
	depth   int
	yield   func(domain.Message, error) bool
}

// Render returns the lazy sequence of messages produced by rendering t
// against s. Every message is appended to s before it is yielded, so the
// consumer always observes the session including the message in hand.
// The sequence ends with a single error when rendering fails or a control
// signal (jump, end, break) escapes t.
func (e *Engine) Render(ctx context.Context, t template.Template, s *domain.Session, rc *Context) iter.Seq2[domain.Message, error] {
	return e.resume(ctx, t, nil, s, rc)
}

// Resume is like Render but enters root only along path, starting the
// target from scratch and continuing with whatever follows it in each
// ancestor. It is how execution continues after a jump.
func (e *Engine) Resume(ctx context.Context, root template.Template, path template.Path, s *domain.Session, rc *Context) iter.Seq2[domain.Message, error] {
	return e.resume(ctx, root, path.Positions, s, rc)
}

func (e *Engine) resume(ctx context.Context, t template.Template, cursor []int, s *domain.Session, rc *Context) iter.Seq2[domain.Message, error] {
	return func(yield func(domain.Message, error) bool) {
		sc := &scope{rc: rc, session: s, yield: yield}
		err := e.render(ctx, sc, t, cursor)
		if err != nil && !errors.Is(err, errStopped) {
			yield(domain.Message{}, err)
		}
	}
}

// render runs hooks around the variant-specific logic. A non-empty cursor
// means t is an ancestor of a jump target: its before-hooks are skipped
// and only the branch named by cursor[0] is entered.
func (e *Engine) render(ctx context.Context, sc *scope, t template.Template, cursor []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := t.TemplateID()
	e.emitTemplateEnter(ctx, sc, t)

	before, after := t.Hooks()
	err := func() error {
		if len(cursor) == 0 {
			if err := e.applyHooks(ctx, sc, id, before); err != nil {
				return err
			}
		}
		if err := e.dispatch(ctx, sc, t, cursor); err != nil {
			return err
		}
		if err := e.applyHooks(ctx, sc, id, after); err != nil {
			return err
		}
		if target, ok := sc.session.JumpTarget(); ok {
			return &domain.JumpSignal{TemplateID: id, Target: target}
		}
		return nil
	}()

	e.emitTemplateLeave(ctx, sc, t, err)
	return err
}

// dispatch selects the rendering logic for the concrete variant.
func (e *Engine) dispatch(ctx context.Context, sc *scope, t template.Template, cursor []int) error {
	switch v := t.(type) {
	case *template.Linear:
		return e.renderLinear(ctx, sc, v, cursor)
	case *template.Loop:
		return e.renderLoop(ctx, sc, v, cursor)
	case *template.Conditional:
		return e.renderConditional(ctx, sc, v, cursor)
	case *template.Jump:
		return e.renderJump(ctx, sc, v)
	case *template.Message:
		return e.renderMessage(ctx, sc, v)
	case *template.ToolInvocation:
		return e.renderTool(ctx, sc, v)
	case *template.Subroutine:
		return e.renderSubroutine(ctx, sc, v, cursor)
	case *template.End:
		return e.renderEnd(ctx, sc, v)
	case *template.Break:
		e.logger.Debug("break", "template_id", v.ID)
		return &domain.BreakSignal{TemplateID: v.ID}
	default:
		return &domain.ConfigurationError{TemplateID: t.TemplateID(), Err: errors.New("unsupported template kind " + string(t.Kind()))}
	}
}

// applyHooks runs hooks in order. Each hook's returned session is adopted
// into the scope's session; messages a hook appended are announced like any
// other message.
func (e *Engine) applyHooks(ctx context.Context, sc *scope, templateID string, hooks []template.Hook) error {
	for _, h := range hooks {
		before := sc.session.Len()
		next, err := h(ctx, sc.session)
		if err != nil {
			return wrapFailure(templateID, err)
		}
		if next != nil && next != sc.session {
			if err := e.admit(sc, next.Len()-before); err != nil {
				return err
			}
		}
		if err := sc.session.Adopt(next); err != nil {
			return wrapFailure(templateID, err)
		}
		if added := sc.session.Len() - before; added > 0 {
			msgs := sc.session.Messages()
			if err := e.announce(ctx, sc, templateID, msgs[before:]...); err != nil {
				return err
			}
		}
	}
	return nil
}

// emit appends msgs to the scope's session as one batch, then announces them.
func (e *Engine) emit(ctx context.Context, sc *scope, templateID string, msgs ...domain.Message) error {
	if err := e.admit(sc, len(msgs)); err != nil {
		return err
	}
	sc.session.Append(msgs...)
	return e.announce(ctx, sc, templateID, msgs...)
}

func (e *Engine) admit(sc *scope, n int) error {
	if sc.depth > 0 || n <= 0 || sc.rc.Admit == nil {
		return nil
	}
	return sc.rc.Admit(sc.session, n)
}

func (e *Engine) announce(ctx context.Context, sc *scope, templateID string, msgs ...domain.Message) error {
	for _, m := range msgs {
		e.emitMessage(ctx, sc, templateID, m)
		if sc.yield != nil && !sc.yield(m, nil) {
			return errStopped
		}
	}
	return nil
}

// wrapFailure tags err with the template id unless it already carries
// context of its own or is a control signal.
func wrapFailure(templateID string, err error) error {
	if domain.IsControlSignal(err) || errors.Is(err, errStopped) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var (
		cfg    *domain.ConfigurationError
		tool   *domain.UnknownToolError
		collab *domain.CollaboratorError
		render *domain.RenderError
	)
	if errors.As(err, &cfg) || errors.As(err, &tool) || errors.As(err, &collab) || errors.As(err, &render) {
		return err
	}
	return &domain.RenderError{TemplateID: templateID, Err: err}
}
