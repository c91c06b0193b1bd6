package runner

import (
	"log/slog"

	"github.com/aretw0/tendril/internal/runtime"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// DefaultMaxJumps bounds the jumps a single run may take.
const DefaultMaxJumps = 1000

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithModel sets the model used by generating templates.
func WithModel(m ports.Model) Option {
	return func(r *Runner) { r.model = m }
}

// WithInteraction sets the user interaction. Without one, the handler
// answers user-input templates.
func WithInteraction(ui ports.UserInteraction) Option {
	return func(r *Runner) { r.interaction = ui }
}

// WithHandler sets the IOHandler receiving messages and chunks.
func WithHandler(h IOHandler) Option {
	return func(r *Runner) { r.handler = h }
}

// WithStore configures durable sessions. The session is saved after every
// message and when the run ends.
func WithStore(store ports.SessionStore) Option {
	return func(r *Runner) { r.store = store }
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithLifecycleHooks registers observability callbacks on the engine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runner) { r.hooks = domain.ComposeHooks(r.hooks, hooks) }
}

// WithInterceptor configures the tool execution policy.
func WithInterceptor(interceptor ToolInterceptor) Option {
	return func(r *Runner) { r.interceptor = interceptor }
}

// WithMaxMessages ends the run, with a warning, before it would append
// more than n messages. 0 means unlimited.
func WithMaxMessages(n int) Option {
	return func(r *Runner) { r.maxMessages = n }
}

// WithMaxJumps overrides DefaultMaxJumps. 0 means unlimited.
func WithMaxJumps(n int) Option {
	return func(r *Runner) { r.maxJumps = n }
}

// WithInterpolator replaces the interpolation of static message content.
func WithInterpolator(interp runtime.Interpolator) Option {
	return func(r *Runner) { r.interpolator = interp }
}
