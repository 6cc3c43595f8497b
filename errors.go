package vecidx

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecidx/distance"
	"github.com/hupe1980/vecidx/internal/graph"
	"github.com/hupe1980/vecidx/internal/hnsw"
	"github.com/hupe1980/vecidx/internal/postings"
	"github.com/hupe1980/vecidx/internal/vectorstore"
)

var (
	// ErrGraphExists is returned when creating a graph under a taken name.
	ErrGraphExists = errors.New("graph already exists")

	// ErrGraphNotFound is returned for unknown graph names.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidConfig is returned for invalid graph parameters.
	ErrInvalidConfig = errors.New("invalid graph config")

	// ErrCorrupt is returned when persisted graph data violates an invariant.
	ErrCorrupt = errors.New("index corrupt")

	// ErrReservedBits is returned for document ids using the reserved high bits.
	ErrReservedBits = errors.New("document id uses reserved bits")

	// ErrCommitted is returned when a committed or discarded registration is reused.
	ErrCommitted = errors.New("registration already finalized")

	// ErrNotFound is returned when a content hash is not registered.
	ErrNotFound = errors.New("not found")
)

// ErrVectorSize indicates a vector whose byte length does not match the graph.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrVectorSize struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrVectorSize) Error() string {
	return fmt.Sprintf("vector size mismatch: expected %d bytes, got %d", e.Expected, e.Actual)
}

func (e *ErrVectorSize) Unwrap() error { return e.cause }

// ErrInvalidMetric indicates an unsupported similarity metric.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidMetric struct {
	Metric string
	cause  error
}

func (e *ErrInvalidMetric) Error() string {
	return fmt.Sprintf("invalid metric: %s", e.Metric)
}

func (e *ErrInvalidMetric) Unwrap() error { return e.cause }

// ErrNodeNotFound indicates a graph node without a persisted record. It is
// always reported together with ErrCorrupt.
type ErrNodeNotFound struct {
	ID    uint64
	cause error
}

func (e *ErrNodeNotFound) Error() string {
	return fmt.Sprintf("node %d not found", e.ID)
}

func (e *ErrNodeNotFound) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var vs *vectorstore.ErrVectorSize
	if errors.As(err, &vs) {
		return &ErrVectorSize{Expected: vs.Expected, Actual: vs.Actual, cause: err}
	}
	var um *distance.ErrUnsupportedMetric
	if errors.As(err, &um) {
		name := um.Name
		if name == "" {
			name = um.Metric.String()
		}
		return &ErrInvalidMetric{Metric: name, cause: err}
	}
	var ivs *distance.ErrInvalidVectorSize
	if errors.As(err, &ivs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	var nf *hnsw.ErrNodeNotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %w", ErrCorrupt, &ErrNodeNotFound{ID: nf.ID, cause: err})
	}

	switch {
	case errors.Is(err, hnsw.ErrInvalidK):
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	case errors.Is(err, hnsw.ErrFinalized):
		return fmt.Errorf("%w: %w", ErrCommitted, err)
	case errors.Is(err, hnsw.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, postings.ErrReservedBits):
		return fmt.Errorf("%w: %w", ErrReservedBits, err)
	case errors.Is(err, hnsw.ErrCorrupt),
		errors.Is(err, postings.ErrCorrupt),
		errors.Is(err, graph.ErrCorruptNode),
		errors.Is(err, graph.ErrCorruptHeader),
		errors.Is(err, vectorstore.ErrInvalidRef):
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return err
}
