package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ToolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "g4build_tool_invocations_total",
		Help: "Total number of grammar compiler processes launched.",
	}, []string{"mode", "outcome"})

	ToolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "g4build_tool_seconds",
		Help:    "Wall time of a single grammar compiler process.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	TargetsEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "g4build_targets_emitted_total",
		Help: "Total number of output files reported by dependency queries.",
	})

	ImportsScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "g4build_imports_scanned_total",
		Help: "Total number of import statements found while scanning grammars.",
	})

	ImportCycles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "g4build_import_cycles",
		Help: "Number of grammar import cycles seen in the last plan.",
	})

	PlanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "g4build_plan_seconds",
		Help:    "Time spent scanning and emitting targets for a build.",
		Buckets: prometheus.DefBuckets,
	})

	BuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "g4build_builds_total",
		Help: "Total number of builds by outcome.",
	}, []string{"outcome"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "g4build_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RebuildsThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "g4build_rebuilds_throttled_total",
		Help: "Total number of watch-mode rebuilds delayed by the rate limiter.",
	})
)
