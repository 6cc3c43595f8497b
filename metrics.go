package vecidx

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems, or use
// PrometheusCollector.
type MetricsCollector interface {
	// RecordRegister is called after each Register call.
	RecordRegister(duration time.Duration, err error)

	// RecordRemove is called after each Remove call.
	RecordRemove(duration time.Duration, err error)

	// RecordCommit is called after each registration commit.
	// nodesCreated is the number of nodes wired into the graph.
	RecordCommit(nodesCreated int, duration time.Duration, err error)

	// RecordSearch is called after each search is constructed.
	// k is the number of candidates requested.
	RecordSearch(k int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRegister(time.Duration, error)    {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)      {}
func (NoopMetricsCollector) RecordCommit(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	RegisterCount    atomic.Int64
	RegisterErrors   atomic.Int64
	RemoveCount      atomic.Int64
	RemoveErrors     atomic.Int64
	CommitCount      atomic.Int64
	CommitErrors     atomic.Int64
	NodesCreated     atomic.Int64
	CommitTotalNanos atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
}

// RecordRegister implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRegister(_ time.Duration, err error) {
	b.RegisterCount.Add(1)
	if err != nil {
		b.RegisterErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(_ time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordCommit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCommit(nodesCreated int, duration time.Duration, err error) {
	b.CommitCount.Add(1)
	b.CommitTotalNanos.Add(duration.Nanoseconds())
	b.NodesCreated.Add(int64(nodesCreated))
	if err != nil {
		b.CommitErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_ int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RegisterCount:  b.RegisterCount.Load(),
		RegisterErrors: b.RegisterErrors.Load(),
		RemoveCount:    b.RemoveCount.Load(),
		RemoveErrors:   b.RemoveErrors.Load(),
		CommitCount:    b.CommitCount.Load(),
		CommitErrors:   b.CommitErrors.Load(),
		NodesCreated:   b.NodesCreated.Load(),
		CommitAvgNanos: avgNanos(b.CommitTotalNanos.Load(), b.CommitCount.Load()),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: avgNanos(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RegisterCount  int64
	RegisterErrors int64
	RemoveCount    int64
	RemoveErrors   int64
	CommitCount    int64
	CommitErrors   int64
	NodesCreated   int64
	CommitAvgNanos int64
	SearchCount    int64
	SearchErrors   int64
	SearchAvgNanos int64
}
