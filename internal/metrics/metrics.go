// Package metrics exposes Prometheus collectors for cleaning runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "telemetry_pipeline"

var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Cleaning runs by final status.",
	}, []string{"status"})

	RowsRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_removed_total",
		Help:      "Rows hard-deleted by cleaning rules.",
	})

	ValuesNulledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "values_nulled_total",
		Help:      "Values replaced with missing by range rules.",
	}, []string{"rule"})

	ArtifactsWrittenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "artifacts_written_total",
		Help:      "Partition artifacts written.",
	})

	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of a cleaning run.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(RunsTotal, RowsRemovedTotal, ValuesNulledTotal, ArtifactsWrittenTotal, RunDuration)
}
