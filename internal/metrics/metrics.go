// Package metrics provides Prometheus instrumentation for the usage monitor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tick outcomes.
const (
	OutcomeRecorded     = "recorded"
	OutcomeEmpty        = "empty"
	OutcomeSourceError  = "source_error"
	OutcomePersistError = "persist_error"
	OutcomeFailed       = "failed"
	OutcomePanic        = "panic"
)

var (
	// TicksTotal counts monitor cycles by outcome.
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neuropulse",
			Name:      "ticks_total",
			Help:      "Total monitor cycles by outcome.",
		},
		[]string{"outcome"},
	)

	// TickDuration observes how long one cycle takes.
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "neuropulse",
			Name:      "tick_duration_seconds",
			Help:      "Monitor cycle duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// MonitorRunning is 1 while the scheduler is running.
	MonitorRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "neuropulse",
			Name:      "monitor_running",
			Help:      "Whether the usage monitor is running (1) or stopped (0).",
		},
	)

	// LastActiveSeconds is the active time of the most recent record.
	LastActiveSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "neuropulse",
			Name:      "last_active_seconds",
			Help:      "Foreground-active seconds in the most recently recorded window.",
		},
	)

	// EventsIngestedTotal counts observer events accepted over HTTP.
	EventsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neuropulse",
			Name:      "events_ingested_total",
			Help:      "Total observer events ingested by kind.",
		},
		[]string{"kind"},
	)
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		TicksTotal,
		TickDuration,
		MonitorRunning,
		LastActiveSeconds,
		EventsIngestedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
