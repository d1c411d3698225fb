package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the Prometheus series this system exposes: rate limiter
// pressure per model, active session count, tool outcomes, and ReAct step
// counts by type.
type Metrics struct {
	// RateLimiterUsage is the fraction of the configured budget consumed,
	// per model, as of the latest successful request, after its tokens
	// were recorded.
	// Labels: model
	RateLimiterUsage *prometheus.GaugeVec

	// SessionsActive is the current count of sessions not yet cleaned up.
	SessionsActive prometheus.Gauge

	// ToolInvocations counts tool executions by tool name and outcome.
	// Labels: tool, outcome (success|error)
	ToolInvocations *prometheus.CounterVec

	// ReactSteps counts ReAct steps emitted by type.
	// Labels: type (thought|action|observation|final_answer|error)
	ReactSteps *prometheus.CounterVec

	// ToolDuration measures tool execution time in seconds.
	// Labels: tool
	ToolDuration *prometheus.HistogramVec
}

// NewMetrics registers and returns the metric collectors, using registerer
// if non-nil or the default Prometheus registry otherwise.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		RateLimiterUsage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reactor_rate_limiter_usage_ratio",
				Help: "Fraction of the per-model rate limit budget in use.",
			},
			[]string{"model"},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "reactor_sessions_active",
				Help: "Number of sessions not yet cleaned up.",
			},
		),
		ToolInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reactor_tool_invocations_total",
				Help: "Total tool executions by tool name and outcome.",
			},
			[]string{"tool", "outcome"},
		),
		ReactSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reactor_react_steps_total",
				Help: "Total ReAct steps emitted by type.",
			},
			[]string{"type"},
		),
		ToolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reactor_tool_duration_seconds",
				Help:    "Tool execution latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
	}
}

// RecordToolInvocation records a tool execution's outcome and duration.
func (m *Metrics) RecordToolInvocation(tool, outcome string, durationSeconds float64) {
	m.ToolInvocations.WithLabelValues(tool, outcome).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(durationSeconds)
}

// RecordStep increments the step counter for the given step type.
func (m *Metrics) RecordStep(stepType string) {
	m.ReactSteps.WithLabelValues(stepType).Inc()
}

// SetRateLimiterUsage records the current usage ratio for model.
func (m *Metrics) SetRateLimiterUsage(model string, ratio float64) {
	m.RateLimiterUsage.WithLabelValues(model).Set(ratio)
}

// SessionStarted increments the active sessions gauge.
func (m *Metrics) SessionStarted() {
	m.SessionsActive.Inc()
}

// SessionEnded decrements the active sessions gauge.
func (m *Metrics) SessionEnded() {
	m.SessionsActive.Dec()
}
