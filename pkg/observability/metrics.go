package observability

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/tendril/pkg/domain"
)

// Namespace prefixes every metric name.
const Namespace = "tendril"

// Metrics holds the collectors fed by Hooks.
type Metrics struct {
	TemplatesRendered *prometheus.CounterVec
	MessagesAppended  *prometheus.CounterVec
	ModelCalls        *prometheus.CounterVec
	ModelLatency      *prometheus.HistogramVec
	ToolCalls         *prometheus.CounterVec
	ToolDuration      *prometheus.HistogramVec
	Jumps             prometheus.Counter
	Runs              *prometheus.CounterVec

	mu      sync.Mutex
	pending map[toolKey]time.Time
}

type toolKey struct {
	session, template, tool string
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TemplatesRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "templates_rendered_total",
			Help:      "Templates rendered, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		MessagesAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "messages_appended_total",
			Help:      "Messages appended to sessions, by role.",
		}, []string{"role"}),
		ModelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "model_calls_total",
			Help:      "Model calls, by outcome.",
		}, []string{"outcome"}),
		ModelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Latency of model calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"cached"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tool_calls_total",
			Help:      "Tool executions, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "tool_duration_seconds",
			Help:      "Duration of tool executions.",
		}, []string{"tool"}),
		Jumps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "jumps_total",
			Help:      "Resolved jumps.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Finished runs, by final state.",
		}, []string{"state"}),
		pending: make(map[toolKey]time.Time),
	}
	if reg != nil {
		reg.MustRegister(
			m.TemplatesRendered, m.MessagesAppended, m.ModelCalls, m.ModelLatency,
			m.ToolCalls, m.ToolDuration, m.Jumps, m.Runs,
		)
	}
	return m
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsControlSignal(err):
		return "signal"
	default:
		return "error"
	}
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTemplateLeave: func(_ context.Context, e *domain.TemplateEvent) {
			m.TemplatesRendered.WithLabelValues(e.Kind, outcome(e.Err)).Inc()
		},
		OnMessage: func(_ context.Context, e *domain.MessageEvent) {
			m.MessagesAppended.WithLabelValues(string(e.Message.Role)).Inc()
		},
		OnModelCall: func(_ context.Context, e *domain.ModelEvent) {
			m.ModelCalls.WithLabelValues(outcome(e.Err)).Inc()
			cached := "false"
			if e.Cached {
				cached = "true"
			}
			m.ModelLatency.WithLabelValues(cached).Observe(e.Duration.Seconds())
		},
		OnToolCall: func(_ context.Context, e *domain.ToolEvent) {
			m.mu.Lock()
			m.pending[toolKey{e.SessionID, e.TemplateID, e.ToolName}] = e.Timestamp
			m.mu.Unlock()
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			result := "ok"
			if e.IsError {
				result = "error"
			}
			m.ToolCalls.WithLabelValues(e.ToolName, result).Inc()

			key := toolKey{e.SessionID, e.TemplateID, e.ToolName}
			m.mu.Lock()
			start, ok := m.pending[key]
			delete(m.pending, key)
			m.mu.Unlock()
			if ok {
				m.ToolDuration.WithLabelValues(e.ToolName).Observe(e.Timestamp.Sub(start).Seconds())
			}
		},
		OnJump: func(context.Context, *domain.JumpEvent) {
			m.Jumps.Inc()
		},
	}
}

// ObserveRun counts a finished run under its final state.
func (m *Metrics) ObserveRun(state string) {
	m.Runs.WithLabelValues(state).Inc()
}
