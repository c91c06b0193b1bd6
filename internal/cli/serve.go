package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/tendril"
	tendrilhttp "github.com/aretw0/tendril/pkg/adapters/http"
	tendrilmcp "github.com/aretw0/tendril/pkg/adapters/mcp"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/session"
)

// ShutdownTimeout bounds graceful shutdown of the servers.
const ShutdownTimeout = 5 * time.Second

// ServeOptions configures the HTTP and MCP servers.
type ServeOptions struct {
	Dir       string
	FlowFile  string
	Addr      string
	Debug     bool
	FileTools bool
	// AllowTools restricts the tools flows may call. Empty allows all.
	AllowTools []string
	Backend    BackendOptions
	Model      ModelOptions
}

// Service is a loaded project with the collaborators servers share.
type Service struct {
	Project  *tendril.Project
	Sessions *session.Manager
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Logger   *slog.Logger
	backend  *Backend
	runOpts  []runner.Option
}

// OpenService loads the project of opts with metrics and session
// persistence attached.
func OpenService(opts ServeOptions) (*Service, error) {
	logger := NewLogger(opts.Debug)
	if opts.Backend.Dir == "" {
		opts.Backend.Dir = opts.Dir
	}
	backend, err := OpenBackend(opts.Backend)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	m, err := NewModel(opts.Model, backend.Cache, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}
	p, err := OpenProject(opts.Dir, opts.FlowFile, m, opts.FileTools, logger, metrics.Hooks())
	if err != nil {
		backend.Close()
		return nil, err
	}

	svc := &Service{
		Project:  p,
		Sessions: backend.Sessions(logger),
		Registry: reg,
		Metrics:  metrics,
		Logger:   logger,
		backend:  backend,
	}
	if len(opts.AllowTools) > 0 {
		svc.runOpts = append(svc.runOpts, runner.WithInterceptor(runner.AllowListMiddleware(opts.AllowTools...)))
	}
	return svc, nil
}

// Close releases the backend.
func (s *Service) Close() error { return s.backend.Close() }

// HTTPHandler returns the HTTP API of the service.
func (s *Service) HTTPHandler() http.Handler {
	return tendrilhttp.NewHandler(&tendrilhttp.Server{
		Sessions:  s.Sessions,
		NewRunner: s.Project.RunnerFactory(s.runOpts...),
		Gatherer:  s.Registry,
		Metrics:   s.Metrics,
		Version:   tendril.Version,
		Logger:    s.Logger,
	})
}

// MCPServer returns the MCP server of the service: the project tools plus
// the run_flow tool.
func (s *Service) MCPServer() *tendrilmcp.Server {
	return tendrilmcp.NewServer(tendril.Version,
		tendrilmcp.WithTools(s.Project.Tools),
		tendrilmcp.WithFlow(s.Sessions, s.Project.RunnerFactory(s.runOpts...)),
		tendrilmcp.WithLogger(s.Logger),
	)
}

// ServeHTTP listens on addr until ctx is cancelled, then shuts down
// gracefully.
func ServeHTTP(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "address", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", ShutdownTimeout, err)
		}
		return nil
	}
}
