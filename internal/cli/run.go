package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/presentation/tui"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/session"
)

// Run executes the flow of opts.Dir against in and out until it ends, the
// input closes or ctx is cancelled. An interruption is not an error.
func Run(ctx context.Context, opts RunOptions, in io.Reader, out io.Writer) error {
	logger := NewLogger(opts.Debug)

	initial, err := parseContext(opts.Context)
	if err != nil {
		return err
	}

	if opts.Backend.Dir == "" {
		opts.Backend.Dir = opts.Dir
	}
	backend, err := OpenBackend(opts.Backend)
	if err != nil {
		return err
	}
	defer backend.Close()

	m, err := NewModel(opts.Model, backend.Cache, logger)
	if err != nil {
		return err
	}
	p, err := OpenProject(opts.Dir, opts.FlowFile, m, opts.FileTools, logger)
	if err != nil {
		return err
	}

	var handler runner.IOHandler
	text := !opts.JSON
	if text {
		hopts := []runner.TextHandlerOption{runner.WithVerbose(opts.Verbose)}
		if runner.IsTerminal(out) {
			if render, err := tui.NewRenderer(0); err == nil {
				hopts = append(hopts, runner.WithTextHandlerRenderer(render))
			}
			if !opts.NoBanner {
				tui.PrintBanner(out, tendril.Version)
			}
		}
		handler = runner.NewTextHandler(in, out, hopts...)
	} else {
		handler = runner.NewJSONHandler(in, out)
	}

	interceptor := runner.ConfirmationMiddleware(handler)
	if opts.Yes || opts.JSON {
		interceptor = runner.AutoApproveMiddleware()
	}

	sm := runner.NewSignalManager(ctx)
	defer sm.Stop()
	runCtx := sm.Context()

	ropts := []runner.Option{
		runner.WithHandler(handler),
		runner.WithInterceptor(interceptor),
	}
	if opts.SessionID != "" {
		ropts = append(ropts, runner.WithStore(backend.Store))
	}
	r := p.NewRunner(ropts...)

	initial = mergeMetadata(p.InitialMetadata(), initial)
	var final *domain.Session
	if opts.SessionID == "" {
		final, err = r.Run(runCtx, domain.NewSession(domain.WithMetadata(initial)))
	} else {
		final, err = runStored(runCtx, opts, backend.Sessions(logger), r, initial, handler, text)
	}

	if text && final != nil {
		report(runCtx, handler, final, err, sm.Interrupted())
	}
	return handleExecutionError(err)
}

func runStored(ctx context.Context, opts RunOptions, mgr *session.Manager, r *runner.Runner, initial map[string]any, h runner.IOHandler, text bool) (*domain.Session, error) {
	if opts.Fresh {
		if err := mgr.Delete(ctx, opts.SessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, fmt.Errorf("failed to reset session: %w", err)
		}
	}

	var final *domain.Session
	err := mgr.WithLock(ctx, opts.SessionID, func(ctx context.Context) error {
		s, loaded, err := runner.NewSessionManager(mgr.Store()).LoadOrStart(ctx, opts.SessionID, initial)
		if err != nil {
			return err
		}
		if text {
			if target, ok := s.JumpTarget(); loaded && ok {
				_ = h.SystemOutput(ctx, fmt.Sprintf("Resuming session '%s' at '%s'.", s.ID(), target))
			} else if !loaded {
				_ = h.SystemOutput(ctx, fmt.Sprintf("Session '%s' active.", s.ID()))
			}
		}
		final, err = r.Run(ctx, s)
		return err
	})
	return final, err
}

func report(ctx context.Context, h runner.IOHandler, s *domain.Session, err error, interrupted bool) {
	ctx = context.WithoutCancel(ctx)
	switch {
	case interrupted || isInterrupted(err):
		_ = h.SystemOutput(ctx, "Interrupted.")
	case err != nil:
		var runErr *runner.RunError
		if errors.As(err, &runErr) && runErr.TemplateID != "" {
			_ = h.SystemOutput(ctx, fmt.Sprintf("Failed at '%s'.", runErr.TemplateID))
		}
	default:
		if target, ok := s.JumpTarget(); ok {
			_ = h.SystemOutput(ctx, fmt.Sprintf("Paused at '%s'.", target))
			return
		}
		_ = h.SystemOutput(ctx, fmt.Sprintf("Finished after %d messages.", s.Len()))
	}
}

func parseContext(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("error parsing --context JSON: %w", err)
	}
	return out, nil
}

func mergeMetadata(base, overrides map[string]any) map[string]any {
	if base == nil {
		base = make(map[string]any, len(overrides))
	}
	maps.Copy(base, overrides)
	return base
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)
}

func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}
