package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/tendril/internal/logging"
)

// ArgEnvPrefix prefixes the environment variables carrying tool arguments.
const ArgEnvPrefix = "TENDRIL_ARG_"

// DefaultWaitDelay bounds how long a cancelled process may take to exit
// after the interrupt before it is killed.
const DefaultWaitDelay = 5 * time.Second

// ErrNotRegistered is returned for commands missing from the allow-list.
var ErrNotRegistered = errors.New("process tool not registered")

// Runner executes allow-listed local commands. Arguments never reach the
// command line; they are passed as TENDRIL_ARG_<NAME> environment variables.
type Runner struct {
	registry  map[string]ProcessConfig
	baseDir   string
	waitDelay time.Duration
	logger    *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(tools map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, tool := range tools {
			tool.Name = name
			r.registry[name] = tool
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) { r.baseDir = dir }
}

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(d time.Duration) RunnerOption {
	return func(r *Runner) { r.waitDelay = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry:  make(map[string]ProcessConfig),
		waitDelay: DefaultWaitDelay,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name, command string, args ...string) {
	r.registry[name] = ProcessConfig{Name: name, Command: command, Args: args}
}

// Names returns the registered tool names in sorted order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Output is the captured result of a process run. Parsed holds the decoded
// value when stdout was a JSON object or array.
type Output struct {
	Stdout string
	Parsed any
}

// Run executes the command registered under name. Cancelling ctx interrupts
// the process and kills it if it is still running after the wait delay.
func (r *Runner) Run(ctx context.Context, name string, args map[string]any) (Output, error) {
	proc, ok := r.registry[name]
	if !ok {
		return Output{}, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Cancel = func() error {
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = r.waitDelay
	cmd.Env = append(cmd.Environ(), environment(proc.Environment, args)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug("process finished", "tool", name, "duration", time.Since(start), "error", err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return Output{}, fmt.Errorf("execution of %s failed: %w (stderr: %s)", name, err, strings.TrimSpace(stderr.String()))
	}

	out := Output{Stdout: strings.TrimSpace(stdout.String())}
	if looksLikeJSON(out.Stdout) {
		var parsed any
		if json.Unmarshal([]byte(out.Stdout), &parsed) == nil {
			out.Parsed = parsed
		}
	}
	return out, nil
}

func environment(static map[string]string, args map[string]any) []string {
	env := make([]string, 0, len(static)+len(args))
	for k, v := range static {
		env = append(env, k+"="+v)
	}
	for k, v := range args {
		env = append(env, ArgEnvPrefix+strings.ToUpper(k)+"="+encodeArg(v))
	}
	return env
}

// encodeArg formats primitives as text and everything else as JSON.
func encodeArg(v any) string {
	switch v.(type) {
	case nil:
		return ""
	case string, bool, int, int64, float64:
		return fmt.Sprint(v)
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprint(v)
}

func looksLikeJSON(s string) bool {
	return (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"))
}
