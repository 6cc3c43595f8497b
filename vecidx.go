package vecidx

import (
	"context"
	"fmt"
	"iter"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/vecidx/distance"
	"github.com/hupe1980/vecidx/internal/graph"
	"github.com/hupe1980/vecidx/internal/hnsw"
	"github.com/hupe1980/vecidx/storage"
)

// Backend supplies the host storage collaborators. *storage.Engine
// implements it.
type Backend interface {
	BlockStore() storage.BlockStore
	KVIndex() storage.KVIndex
	LargeSets() storage.LargeSets
}

// Hash is the content hash identifying a distinct vector.
type Hash = hnsw.Hash

// CommitStats summarizes a registration commit.
type CommitStats = hnsw.CommitStats

// HashVector returns the content hash Register computes for vec.
func HashVector(vec []byte) Hash {
	return hnsw.HashVector(vec)
}

// GraphInfo describes a graph.
type GraphInfo struct {
	Name           string
	VectorSize     int
	M              int
	EFConstruction int
	Metric         distance.Metric
	VectorCount    uint64
	MaxLevel       int
}

// Index is a catalog of named HNSW graphs stored in one backend.
//
// The catalog methods are safe for concurrent use. Registrations and searches
// are not: each one belongs to a single goroutine. Registrations on the same
// graph must be serialized by the host transaction, since each one numbers
// new nodes from the committed vector count.
type Index struct {
	mu   sync.Mutex
	host hnsw.Host
	opts options
	regs atomic.Uint64
}

// New creates an Index over backend.
func New(backend Backend, optFns ...Option) *Index {
	return &Index{
		host: hnsw.Host{
			Blocks: backend.BlockStore(),
			Index:  backend.KVIndex(),
			Large:  backend.LargeSets(),
		},
		opts: applyOptions(optFns),
	}
}

// CreateGraph creates an empty graph named name. vectorSize is the byte size
// of every vector registered in it.
func (idx *Index) CreateGraph(ctx context.Context, name string, vectorSize, m, efConstruction int, metric distance.Metric) error {
	err := idx.createGraph(ctx, name, vectorSize, m, efConstruction, metric)
	idx.opts.logger.LogCreateGraph(ctx, name, vectorSize, metric.String(), err)
	return err
}

// CreateGraphFromConfig creates the graph declared by cfg after applying
// defaults.
func (idx *Index) CreateGraphFromConfig(ctx context.Context, cfg GraphConfig) error {
	if err := cfg.normalize(); err != nil {
		return err
	}
	metric, err := cfg.metric()
	if err != nil {
		return err
	}
	return idx.CreateGraph(ctx, cfg.Name, cfg.VectorSize, cfg.M, cfg.EFConstruction, metric)
}

func (idx *Index) createGraph(ctx context.Context, name string, vectorSize, m, efConstruction int, metric distance.Metric) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: missing graph name", ErrInvalidConfig)
	}
	if err := validateGraph(vectorSize, m, efConstruction, metric); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	key := graph.CatalogKey(name)
	_, ok, err := idx.host.Index.Get(key)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %q", ErrGraphExists, name)
	}

	root, err := hnsw.Create(idx.host, hnsw.Config{
		VectorSize:     vectorSize,
		M:              m,
		EFConstruction: efConstruction,
		Metric:         metric,
	})
	if err != nil {
		return translateError(err)
	}
	return idx.host.Index.Put(key, graph.EncodeUint64(uint64(root)))
}

func (idx *Index) root(name string) (storage.BlockID, error) {
	v, ok, err := idx.host.Index.Get(graph.CatalogKey(name))
	if err != nil {
		return storage.NilBlock, err
	}
	if !ok {
		return storage.NilBlock, fmt.Errorf("%w: %q", ErrGraphNotFound, name)
	}
	root, valid := graph.DecodeUint64(v)
	if !valid {
		return storage.NilBlock, fmt.Errorf("%w: catalog entry of %q", ErrCorrupt, name)
	}
	return storage.BlockID(root), nil
}

func (idx *Index) open(name string) (*hnsw.SearchState, error) {
	root, err := idx.root(name)
	if err != nil {
		return nil, err
	}
	s, err := hnsw.Open(idx.host, root)
	if err != nil {
		return nil, translateError(err)
	}
	return s, nil
}

// Graphs returns the names of all graphs in ascending order.
func (idx *Index) Graphs() ([]string, error) {
	var names []string
	err := idx.host.Index.Scan(graph.CatalogPrefix(), func(key, _ []byte) bool {
		names = append(names, graph.GraphName(key))
		return true
	})
	return names, err
}

// Describe returns the current parameters and size of a graph.
func (idx *Index) Describe(name string) (GraphInfo, error) {
	root, err := idx.root(name)
	if err != nil {
		return GraphInfo{}, err
	}
	opts, err := hnsw.ReadHeader(idx.host.Blocks, root)
	if err != nil {
		return GraphInfo{}, translateError(err)
	}
	return GraphInfo{
		Name:           name,
		VectorSize:     int(opts.VectorSize),
		M:              int(opts.M),
		EFConstruction: int(opts.EFConstruction),
		Metric:         opts.Metric,
		VectorCount:    opts.VectorCount,
		MaxLevel:       opts.MaxLevel(),
	}, nil
}

// RegistrationFor starts a batch of insertions and removals on a graph.
func (idx *Index) RegistrationFor(ctx context.Context, name string) (*Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state, err := idx.open(name)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(idx.opts.seed, idx.regs.Add(1)))
	return &Registration{
		graph:   name,
		reg:     hnsw.NewRegistration(state, rng),
		logger:  idx.opts.logger.WithGraph(name),
		metrics: idx.opts.metricsCollector,
	}, nil
}

// ExactNearest ranks every node of the graph against query and keeps the k
// nearest. Documents scoring below minSimilarity are not returned.
func (idx *Index) ExactNearest(ctx context.Context, name string, k int, query []byte, minSimilarity float32) (*NearestSearch, error) {
	return idx.search(ctx, name, true, k, query, minSimilarity)
}

// ApproximateNearest searches the graph for the k nodes nearest to query.
// Documents scoring below minSimilarity are not returned.
func (idx *Index) ApproximateNearest(ctx context.Context, name string, k int, query []byte, minSimilarity float32) (*NearestSearch, error) {
	return idx.search(ctx, name, false, k, query, minSimilarity)
}

func (idx *Index) search(ctx context.Context, name string, exact bool, k int, query []byte, minSimilarity float32) (*NearestSearch, error) {
	start := time.Now()
	ns, err := idx.doSearch(ctx, name, exact, k, query, minSimilarity)

	candidates := 0
	if ns != nil {
		candidates = len(ns.ns.Candidates())
	}
	idx.opts.metricsCollector.RecordSearch(k, time.Since(start), err)
	idx.opts.logger.WithGraph(name).WithK(k).LogSearch(ctx, exact, candidates, err)
	return ns, err
}

func (idx *Index) doSearch(ctx context.Context, name string, exact bool, k int, query []byte, minSimilarity float32) (*NearestSearch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	state, err := idx.open(name)
	if err != nil {
		return nil, err
	}

	var ns *hnsw.NearestSearch
	if exact {
		ns, err = state.ExactNearest(k, query, minSimilarity)
	} else {
		ns, err = state.ApproximateNearest(k, query, minSimilarity)
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &NearestSearch{ns: ns}, nil
}

// Registration batches document insertions and removals on one graph. It
// must be committed or discarded exactly once.
type Registration struct {
	graph   string
	reg     *hnsw.Registration
	logger  *Logger
	metrics MetricsCollector
}

// Register maps docID to the raw vector vec and returns its content hash.
// Identical vectors share one graph node.
func (r *Registration) Register(docID uint64, vec []byte) (Hash, error) {
	start := time.Now()
	h, err := r.reg.Register(docID, vec)
	err = translateError(err)
	r.metrics.RecordRegister(time.Since(start), err)
	return h, err
}

// Remove unmaps docID from the vector identified by hash.
func (r *Registration) Remove(docID uint64, hash Hash) error {
	start := time.Now()
	err := translateError(r.reg.Remove(docID, hash))
	r.metrics.RecordRemove(time.Since(start), err)
	return err
}

// Lookup returns the committed document ids mapped to hash.
func (r *Registration) Lookup(hash Hash) ([]uint64, error) {
	ids, err := r.reg.Lookup(hash)
	return ids, translateError(err)
}

// Commit applies the batch. Calling Commit twice, or after Discard, panics.
func (r *Registration) Commit(ctx context.Context) (CommitStats, error) {
	start := time.Now()
	stats, err := r.reg.Commit()
	err = translateError(err)
	r.metrics.RecordCommit(stats.NodesCreated, time.Since(start), err)
	r.logger.LogCommit(ctx, r.graph, stats, err)
	return stats, err
}

// Discard drops the batch without writing it.
func (r *Registration) Discard() error {
	return translateError(r.reg.Discard())
}

// Result is one ranked document.
type Result struct {
	ID    uint64
	Score float32
}

// NearestSearch streams ranked documents.
type NearestSearch struct {
	ns *hnsw.NearestSearch
}

// Fill writes the next document ids and scores into the buffers and returns
// how many were written. It returns 0 once the search is exhausted.
func (s *NearestSearch) Fill(ids []uint64, scores []float32) (int, error) {
	n, err := s.ns.Fill(ids, scores)
	return n, translateError(err)
}

// All iterates over the remaining results.
func (s *NearestSearch) All() iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		ids := make([]uint64, 64)
		scores := make([]float32, 64)
		for {
			n, err := s.Fill(ids, scores)
			if err != nil {
				yield(Result{}, err)
				return
			}
			if n == 0 {
				return
			}
			for i := range n {
				if !yield(Result{ID: ids[i], Score: scores[i]}, nil) {
					return
				}
			}
		}
	}
}
