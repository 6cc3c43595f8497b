package vecidx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecidx/distance"
)

func TestBasicMetricsCollector(t *testing.T) {
	b := &BasicMetricsCollector{}
	b.RecordCommit(3, 10*time.Nanosecond, nil)
	b.RecordCommit(1, 30*time.Nanosecond, errors.New("boom"))
	b.RecordSearch(5, 4*time.Nanosecond, nil)
	b.RecordRemove(time.Nanosecond, errors.New("boom"))

	stats := b.GetStats()
	assert.Equal(t, int64(2), stats.CommitCount)
	assert.Equal(t, int64(1), stats.CommitErrors)
	assert.Equal(t, int64(4), stats.NodesCreated)
	assert.Equal(t, int64(20), stats.CommitAvgNanos)
	assert.Equal(t, int64(4), stats.SearchAvgNanos)
	assert.Zero(t, stats.RegisterCount)
	assert.Equal(t, int64(1), stats.RemoveCount)
	assert.Equal(t, int64(1), stats.RemoveErrors)
}

func TestPrometheusCollector(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	pc := NewPrometheusCollector(reg)

	idx, _ := newTestIndex(t, WithMetricsCollector(pc))
	require.NoError(t, idx.CreateGraph(ctx, "docs", 8, 4, 10, distance.MetricCosineFloat))

	r, err := idx.RegistrationFor(ctx, "docs")
	require.NoError(t, err)
	h, err := r.Register(1, distance.EncodeFloat32([]float32{1, 0}))
	require.NoError(t, err)
	_, err = r.Register(2, []byte{1})
	require.Error(t, err)
	_, err = r.Commit(ctx)
	require.NoError(t, err)

	r, err = idx.RegistrationFor(ctx, "docs")
	require.NoError(t, err)
	require.NoError(t, r.Remove(1, h))
	require.NoError(t, r.Discard())

	_, err = idx.ExactNearest(ctx, "docs", 1, distance.EncodeFloat32([]float32{1, 0}), 0)
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(pc.operations.WithLabelValues("register")))
	assert.Equal(t, float64(1), testutil.ToFloat64(pc.errors.WithLabelValues("register")))
	assert.Equal(t, float64(1), testutil.ToFloat64(pc.operations.WithLabelValues("remove")))
	assert.Equal(t, float64(0), testutil.ToFloat64(pc.errors.WithLabelValues("remove")))
	assert.Equal(t, float64(1), testutil.ToFloat64(pc.operations.WithLabelValues("commit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(pc.operations.WithLabelValues("search")))
	assert.Equal(t, float64(1), testutil.ToFloat64(pc.nodesCreated))

	n, err := testutil.GatherAndCount(reg, "vecidx_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
