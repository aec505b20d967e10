// Copyright 2024 evolvedb.

// The servermon package is used to update statistics used for monitoring
// migration runs.
package servermon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StepAppliedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evolve",
		Subsystem: "migrate",
		Name:      "step_applied_total",
		Help:      "The number of successfully committed migration steps.",
	}, []string{"dialect"})
	StepErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evolve",
		Subsystem: "migrate",
		Name:      "step_error_total",
		Help:      "The number of migration steps that were rolled back.",
	}, []string{"dialect"})
	StepDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "evolve",
		Subsystem: "migrate",
		Name:      "step_duration_seconds",
		Help:      "Histogram of migration step time in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"dialect"})
	StatementCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evolve",
		Subsystem: "migrate",
		Name:      "statement_total",
		Help:      "The number of DDL statements executed.",
	}, []string{"dialect"})
	DiffErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evolve",
		Subsystem: "diff",
		Name:      "error_total",
		Help:      "The number of diff collaborator failures.",
	}, []string{"dialect"})
)
