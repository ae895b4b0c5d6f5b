// Package metrics exposes Prometheus instrumentation for the agent core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TasksTotal counts executed tasks by outcome (ok / failed).
	TasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inboxpilot",
		Name:      "tasks_total",
		Help:      "Tasks executed, by outcome.",
	}, []string{"outcome"})

	// StepsTotal counts tool invocations by tool name.
	StepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inboxpilot",
		Name:      "steps_total",
		Help:      "Tool invocations, by tool.",
	}, []string{"tool"})

	// ParserFallbacks counts recoverable model-path failures that fell
	// back to rule-based extraction, by stage (select / extract).
	ParserFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inboxpilot",
		Name:      "parser_fallbacks_total",
		Help:      "Recoverable parser failures handled by the rule-based path, by stage.",
	}, []string{"stage"})

	// TaskDuration observes end-to-end task execution time.
	TaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "inboxpilot",
		Name:      "task_duration_seconds",
		Help:      "End-to-end ExecuteTask duration.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
