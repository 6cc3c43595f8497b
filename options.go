package vecidx

import (
	"log/slog"
	"time"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	seed             uint64
}

// Option configures an Index.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vecidx.BasicMetricsCollector{}
//	idx := vecidx.New(engine, vecidx.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithRandomSeed fixes the seed of the level assignment so that graphs are
// built reproducibly. Every registration derives its own stream from it.
func WithRandomSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		seed:             uint64(time.Now().UnixNano()),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
