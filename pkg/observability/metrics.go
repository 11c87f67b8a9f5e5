package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/arbor/pkg/pipeline"
)

// Metrics holds the Prometheus collectors for branch computations.
type Metrics struct {
	Wrappers        *prometheus.CounterVec
	Evictions       *prometheus.CounterVec
	StageFailures   *prometheus.CounterVec
	FetchFailures   *prometheus.CounterVec
	BuildFailures   *prometheus.CounterVec
	ComputeDuration *prometheus.HistogramVec
}

// NewMetrics creates unregistered collectors under the given namespace (e.g. "arbor").
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Wrappers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wrappers_reconciled_total",
				Help:      "Wrappers produced by reconciliation, by outcome (created or reused).",
			},
			[]string{"branch", "outcome"},
		),
		Evictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wrappers_evicted_total",
				Help:      "Wrappers dropped because their key left the branch.",
			},
			[]string{"branch"},
		),
		StageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_failures_total",
				Help:      "Stage applications whose output was discarded.",
			},
			[]string{"stage"},
		),
		FetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_failures_total",
				Help:      "Item fetches that failed.",
			},
			[]string{"branch"},
		),
		BuildFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "construction_failures_total",
				Help:      "Node constructions that failed and will be retried.",
			},
			[]string{"branch"},
		),
		ComputeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compute_duration_seconds",
				Help:      "Duration of child computations.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"branch"},
		),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Wrappers, m.Evictions, m.StageFailures, m.FetchFailures, m.BuildFailures, m.ComputeDuration,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Hooks returns pipeline hooks that record into the collectors.
func (m *Metrics) Hooks() pipeline.Hooks {
	return pipeline.Hooks{
		OnReconcile: func(ctx context.Context, e *pipeline.ReconcileEvent) {
			m.Wrappers.WithLabelValues(e.Branch, "created").Add(float64(e.Created))
			m.Wrappers.WithLabelValues(e.Branch, "reused").Add(float64(e.Reused))
			m.Evictions.WithLabelValues(e.Branch).Add(float64(e.Evicted))
		},
		OnCompute: func(ctx context.Context, e *pipeline.ComputeEvent) {
			m.ComputeDuration.WithLabelValues(e.Branch).Observe(e.Duration.Seconds())
		},
		OnFetchFailure: func(ctx context.Context, e *pipeline.FailureEvent) {
			m.FetchFailures.WithLabelValues(e.Branch).Inc()
		},
		OnStageFailure: func(ctx context.Context, e *pipeline.FailureEvent) {
			m.StageFailures.WithLabelValues(e.Stage).Inc()
		},
		OnConstructionFailure: func(ctx context.Context, e *pipeline.FailureEvent) {
			m.BuildFailures.WithLabelValues(e.Branch).Inc()
		},
	}
}
