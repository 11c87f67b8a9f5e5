package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/pipeline"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics("arbor")
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnReconcile(ctx, &pipeline.ReconcileEvent{
		EventBase: pipeline.EventBase{Branch: "Work"},
		Created:   2,
		Reused:    3,
		Evicted:   1,
	})
	hooks.OnStageFailure(ctx, &pipeline.FailureEvent{Stage: "sort", Err: errors.New("boom")})
	hooks.OnFetchFailure(ctx, &pipeline.FailureEvent{EventBase: pipeline.EventBase{Branch: "Work"}})
	hooks.OnConstructionFailure(ctx, &pipeline.FailureEvent{EventBase: pipeline.EventBase{Branch: "Work"}})
	hooks.OnCompute(ctx, &pipeline.ComputeEvent{EventBase: pipeline.EventBase{Branch: "Work"}, Duration: time.Millisecond})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Wrappers.WithLabelValues("Work", "created")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Wrappers.WithLabelValues("Work", "reused")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evictions.WithLabelValues("Work")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues("sort")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchFailures.WithLabelValues("Work")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BuildFailures.WithLabelValues("Work")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ComputeDuration))
}

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("arbor")

	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg), "registering twice must fail")
}
