// Package metrics holds the Prometheus collectors for the orchestrator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the process-wide collectors. Created once at startup.
type Metrics struct {
	TurnsTotal        *prometheus.CounterVec
	TurnDuration      prometheus.Histogram
	IterationsPerTurn prometheus.Histogram
	ToolExecutions    *prometheus.CounterVec
	TokensUsed        prometheus.Counter
	ActiveTurns       prometheus.Gauge
}

// New registers all collectors against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TurnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_turns_total",
			Help: "Completed turns by outcome.",
		}, []string{"outcome"}),
		TurnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "orchestrator_turn_duration_seconds",
			Help:    "Wall-clock duration of one turn.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		IterationsPerTurn: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "orchestrator_iterations_per_turn",
			Help:    "Loop iterations used per turn.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		ToolExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_tool_executions_total",
			Help: "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		TokensUsed: factory.NewCounter(prometheus.CounterOpts{
			Name: "orchestrator_tokens_used_total",
			Help: "Total LLM tokens reported across all turns.",
		}),
		ActiveTurns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "orchestrator_active_turns",
			Help: "Turns currently in flight.",
		}),
	}
}

// Outcome labels for TurnsTotal and ToolExecutions.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
