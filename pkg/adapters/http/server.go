package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/interaction"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/session"
)

// Server exposes sessions and runs over HTTP.
type Server struct {
	Sessions *session.Manager
	// NewRunner is called per request with the request input as ui.
	NewRunner ports.RunnerFactory
	Streams   *StreamManager
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Metrics, when set, counts finished runs.
	Metrics *observability.Metrics
	Version string
	Logger  *slog.Logger
}

// RunRequest is the body of POST /runs.
type RunRequest struct {
	SessionID string         `json:"session_id"`
	Input     []string       `json:"input,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewHandler wires the routes of srv.
func NewHandler(srv *Server) http.Handler {
	if srv.Logger == nil {
		srv.Logger = logging.NewNop()
	}
	if srv.Streams == nil {
		srv.Streams = NewStreamManager(srv.Logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", srv.health)
	r.Get("/info", srv.info)
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", srv.listSessions)
		r.Get("/{id}", srv.getSession)
		r.Delete("/{id}", srv.deleteSession)
	})
	r.Post("/runs", srv.run)
	r.Get("/events", srv.subscribe)
	if srv.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(srv.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"app": "tendril-http", "version": s.Version})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err)
	default:
		s.writeJSON(w, http.StatusOK, sess)
	}
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// run answers the flow's questions with the request input, in order. Once
// the input is used up the run is suspended at the next question.
func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}
	for i, in := range req.Input {
		clean, err := runner.SanitizeInput(in)
		if err != nil {
			s.Logger.Warn("input rejected", "session_id", req.SessionID, "err", err, "size", len(in))
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		req.Input[i] = clean
	}

	turn, err := s.Sessions.Turn(r.Context(), req.SessionID, req.Metadata, s.NewRunner(interaction.NewInput(req.Input...)))
	var resp *runner.RichResponse
	if turn != nil {
		resp = turn.Response
		if turn.Diff != nil {
			if raw, merr := json.Marshal(turn.Diff); merr == nil {
				s.Streams.Broadcast(req.SessionID, string(raw))
			}
		}
	}

	var runErr *runner.RunError
	switch {
	case err == nil:
		s.observe(runner.StateTerminated)
		s.writeJSON(w, http.StatusOK, resp)
	case errors.As(err, &runErr):
		s.observe(runner.StateFailed)
		s.Logger.Error("run failed", "session_id", req.SessionID, "template_id", runErr.TemplateID, "err", err)
		s.writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, runner.ErrBusy):
		s.writeError(w, http.StatusConflict, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) observe(state runner.State) {
	if s.Metrics != nil {
		s.Metrics.ObserveRun(string(state))
	}
}
