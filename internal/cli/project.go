package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/model"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/aretw0/tendril/pkg/ports"
)

// NewLogger writes to stderr so stdout stays with the conversation.
func NewLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// NewModel builds the model selected by opts. cache, when not nil, backs
// the response cache.
func NewModel(opts ModelOptions, cache ports.CacheProvider, logger *slog.Logger) (ports.Model, error) {
	var m ports.Model
	switch opts.Name {
	case "", "echo":
		m = model.Echo{}
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown model %q (available: echo, none)", opts.Name)
	}
	switch {
	case cache != nil:
		m = model.NewCached(m, cache, logger)
	case opts.CacheSize > 0:
		m = model.NewCached(m, model.NewLRU(opts.CacheSize), logger)
	}
	return m, nil
}

// OpenProject loads the flow in dir with the CLI conventions: the model
// from opts, debug hooks in debug mode and extra hooks composed after them.
func OpenProject(dir, flowFile string, m ports.Model, fileTools bool, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*tendril.Project, error) {
	all := append([]domain.LifecycleHooks{observability.LoggingHooks(logger)}, hooks...)
	opts := []tendril.Option{
		tendril.WithLogger(logger),
		tendril.WithLifecycleHooks(domain.ComposeHooks(all...)),
	}
	if flowFile != "" {
		opts = append(opts, tendril.WithFlowFile(flowFile))
	}
	if m != nil {
		opts = append(opts, tendril.WithModel(m))
	}
	if fileTools {
		opts = append(opts, tendril.WithFileTools())
	}
	p, err := tendril.Open(dir, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading flow: %w", err)
	}
	return p, nil
}
