// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DesignsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "designs_generated_total",
			Help: "Total number of designs generated synchronously",
		},
		[]string{"path"}, // "sync" or "consumer"
	)

	DesignsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "designs_failed_total",
			Help: "Total number of design generations that failed",
		},
		[]string{"path", "error_code"},
	)

	JobsQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "design_jobs_queued_total",
			Help: "Total number of design jobs handed to the queue producer",
		},
	)

	JobsDeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "design_jobs_dead_lettered_total",
			Help: "Total number of payloads routed to the dead-letter topic",
		},
		[]string{"stage"}, // "publish" or "consume"
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "design_generation_duration_seconds",
			Help: "Duration of generation backend calls in seconds",
		},
	)
)
