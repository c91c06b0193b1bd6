package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/interaction"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/registry"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/session"
)

const (
	// RunFlowTool is the name of the tool driving the conversation flow.
	RunFlowTool = "run_flow"

	sessionsURI = "tendril://sessions"
)

// RunFlowArgs are the arguments of the run_flow tool.
type RunFlowArgs struct {
	SessionID string         `json:"session_id"`
	Input     []string       `json:"input,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Server wraps an MCP server exposing tools, flows and sessions.
type Server struct {
	tools     *registry.Registry
	sessions  *session.Manager
	newRunner ports.RunnerFactory
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithTools publishes every tool of reg.
func WithTools(reg *registry.Registry) Option {
	return func(s *Server) { s.tools = reg }
}

// WithFlow enables run_flow and the session resources.
func WithFlow(sessions *session.Manager, newRunner ports.RunnerFactory) Option {
	return func(s *Server) {
		s.sessions = sessions
		s.newRunner = newRunner
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a Server named after version.
func NewServer(version string, opts ...Option) *Server {
	s := &Server{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("tendril-mcp", strings.TrimSpace(version),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
	)
	if s.tools != nil {
		for _, t := range s.tools.Tools() {
			s.mcpServer.AddTool(toolFor(t.Spec()), s.handleTool(t.Spec().Name))
		}
	}
	if s.sessions != nil && s.newRunner != nil {
		s.registerFlow()
	}
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on stdin and stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sse.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sse.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening", "transport", "sse", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		s.logger.Info("mcp server shutting down")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// toolFor translates a tool spec into an MCP tool definition.
func toolFor(spec domain.ToolSpec) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(spec.Description)}
	for _, arg := range spec.Arguments {
		props := []mcp.PropertyOption{mcp.Description(arg.Description)}
		if arg.Required {
			props = append(props, mcp.Required())
		}
		switch typ := arg.Type; {
		case typ == "integer" || typ == "int" || typ == "number" || typ == "float":
			opts = append(opts, mcp.WithNumber(arg.Name, props...))
		case typ == "boolean" || typ == "bool":
			opts = append(opts, mcp.WithBoolean(arg.Name, props...))
		case typ == "object" || typ == "map":
			opts = append(opts, mcp.WithObject(arg.Name, props...))
		case typ == "array" || strings.HasPrefix(typ, "["):
			opts = append(opts, mcp.WithArray(arg.Name, props...))
		default:
			opts = append(opts, mcp.WithString(arg.Name, props...))
		}
	}
	return mcp.NewTool(spec.Name, opts...)
}

// handleTool executes a registry tool. Tool failures are reported to the
// client as error results, not protocol errors.
func (s *Server) handleTool(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		res, err := s.tools.Execute(ctx, name, args)
		if err != nil {
			s.logger.Warn("mcp tool failed", "tool", name, "err", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(res.Content), nil
	}
}

func (s *Server) registerFlow() {
	s.mcpServer.AddTool(mcp.NewTool(RunFlowTool,
		mcp.WithDescription("Run the conversation flow for a session. Input answers the flow's questions in order; when it runs out the flow pauses and resumes on the next call."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to run; created when missing")),
		mcp.WithArray("input", mcp.Description("User answers, in order"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithObject("metadata", mcp.Description("Initial metadata for a new session")),
	), mcp.NewStructuredToolHandler(s.handleRunFlow))

	s.mcpServer.AddResource(mcp.NewResource(sessionsURI, "Stored sessions",
		mcp.WithResourceDescription("IDs of every stored session"),
		mcp.WithMIMEType("application/json"),
	), s.handleListSessions)

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(sessionsURI+"/{id}", "Session",
		mcp.WithTemplateDescription("A stored session with its messages and metadata"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.handleReadSession)
}

func (s *Server) handleRunFlow(ctx context.Context, _ mcp.CallToolRequest, args RunFlowArgs) (runner.RichResponse, error) {
	if args.SessionID == "" {
		return runner.RichResponse{}, errors.New("session_id is required")
	}
	for i, in := range args.Input {
		clean, err := runner.SanitizeInput(in)
		if err != nil {
			s.logger.Warn("mcp input rejected", "session_id", args.SessionID, "err", err, "size", len(in))
			return runner.RichResponse{}, fmt.Errorf("input rejected: %w", err)
		}
		args.Input[i] = clean
	}

	turn, err := s.sessions.Turn(ctx, args.SessionID, args.Metadata, s.newRunner(interaction.NewInput(args.Input...)))
	if turn == nil {
		return runner.RichResponse{}, fmt.Errorf("run failed: %w", err)
	}
	if err != nil {
		// The response carries the error and the partial session.
		s.logger.Error("mcp run failed", "session_id", args.SessionID, "err", err)
	}
	return *turn.Response, nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(request.Params.URI, ids)
}

func (s *Server) handleReadSession(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id := strings.TrimPrefix(request.Params.URI, sessionsURI+"/")
	sess, err := s.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonResource(request.Params.URI, sess)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(raw)},
	}, nil
}
