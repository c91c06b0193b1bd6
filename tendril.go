package tendril

import (
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/adapters/process"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/flow"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/registry"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/template"
	"github.com/aretw0/tendril/pkg/tools"
)

// Version is the release of the library and CLI.
var Version = "0.1.0-dev"

const (
	// DefaultFlowFile is looked up in the project directory.
	DefaultFlowFile = "flow.yaml"
	// DefaultToolsFile declares process tools, when present.
	DefaultToolsFile = "tools.yaml"
)

// Project is a flow directory opened for running.
type Project struct {
	Dir        string
	Name       string
	Definition *flow.Definition
	Root       template.Template
	Tools      *registry.Registry
	Processes  *process.Runner

	model  ports.Model
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

type config struct {
	flowFile  string
	model     ports.Model
	models    map[string]ports.Model
	tools     []domain.Tool
	fileTools bool
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures Open.
type Option func(*config)

// WithFlowFile overrides DefaultFlowFile, relative to the project directory.
func WithFlowFile(name string) Option {
	return func(c *config) { c.flowFile = name }
}

// WithModel sets the model used by generate and tool nodes without an
// explicit model.
func WithModel(m ports.Model) Option {
	return func(c *config) { c.model = m }
}

// WithModels names models that nodes can select with "model: <name>".
func WithModels(models map[string]ports.Model) Option {
	return func(c *config) { c.models = models }
}

// WithTools registers additional tools for tool nodes.
func WithTools(ts ...domain.Tool) Option {
	return func(c *config) { c.tools = append(c.tools, ts...) }
}

// WithFileTools registers read_file, create_or_overwrite_file and
// tree_directory, confined to the project directory.
func WithFileTools() Option {
	return func(c *config) { c.fileTools = true }
}

func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) { c.hooks = hooks }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Open loads the flow in dir together with its process tools.
func Open(dir string, opts ...Option) (*Project, error) {
	cfg := &config{flowFile: DefaultFlowFile, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	def, err := flow.Load(filepath.Join(abs, cfg.flowFile))
	if err != nil {
		return nil, err
	}

	p := &Project{
		Dir:        abs,
		Name:       def.Name,
		Definition: def,
		Tools:      registry.New(cfg.tools...),
		model:      cfg.model,
		hooks:      cfg.hooks,
	}
	if p.Name == "" {
		p.Name = filepath.Base(abs)
	}
	p.logger = cfg.logger.With("flow", p.Name)

	toolsFile := def.Tools
	if toolsFile == "" {
		toolsFile = DefaultToolsFile
	}
	if !filepath.IsAbs(toolsFile) {
		toolsFile = filepath.Join(abs, toolsFile)
	}
	procs, err := process.LoadTools(toolsFile)
	if err != nil {
		return nil, err
	}
	p.Processes = process.NewRunner(
		process.WithRegistry(procs),
		process.WithBaseDir(abs),
		process.WithLogger(p.logger),
	)
	for _, t := range p.Processes.Tools() {
		p.Tools.Register(t)
	}
	if cfg.fileTools {
		for _, t := range (tools.Files{Dir: abs}).Tools() {
			p.Tools.Register(t)
		}
	}

	p.Root, err = flow.NewBuilder(
		flow.WithRegistry(p.Tools),
		flow.WithModels(cfg.models),
		flow.WithProcesses(p.Processes),
		flow.WithLogger(p.logger),
	).Build(def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.flowFile, err)
	}
	p.logger.Debug("flow loaded", "dir", abs, "tools", len(p.Tools.Specs()))
	return p, nil
}

// InitialMetadata returns a copy of the metadata new sessions start with.
func (p *Project) InitialMetadata() map[string]any {
	return maps.Clone(p.Definition.Metadata)
}

// NewRunner returns a runner for the flow. opts are applied after the
// project's model, hooks and logger.
func (p *Project) NewRunner(opts ...runner.Option) *runner.Runner {
	base := []runner.Option{
		runner.WithLogger(p.logger),
		runner.WithLifecycleHooks(p.hooks),
	}
	if p.model != nil {
		base = append(base, runner.WithModel(p.model))
	}
	return runner.New(p.Root, append(base, opts...)...)
}

// RunnerFactory returns a factory for servers, one runner per request.
func (p *Project) RunnerFactory(opts ...runner.Option) ports.RunnerFactory {
	return func(ui ports.UserInteraction) ports.FlowRunner {
		return p.NewRunner(append(slices.Clone(opts), runner.WithInteraction(ui))...)
	}
}
