package hnsw

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/vecidx/distance"
	"github.com/hupe1980/vecidx/internal/graph"
	"github.com/hupe1980/vecidx/internal/postings"
	"github.com/hupe1980/vecidx/internal/vectorstore"
	"github.com/hupe1980/vecidx/storage"
)

var (
	// ErrCorrupt is returned when a persisted structure violates an invariant.
	ErrCorrupt = errors.New("hnsw: corrupt graph")

	// ErrNotFound is returned when a content hash is not registered.
	ErrNotFound = errors.New("hnsw: vector not found")
)

// ErrNodeNotFound is returned when a node id has no persisted location.
type ErrNodeNotFound struct {
	ID uint64
}

func (e *ErrNodeNotFound) Error() string {
	return fmt.Sprintf("hnsw: node %d not found", e.ID)
}

func (e *ErrNodeNotFound) Unwrap() error { return ErrCorrupt }

// Host bundles the storage collaborators a graph lives in.
type Host struct {
	Blocks storage.BlockStore
	Index  storage.KVIndex
	Large  storage.LargeSets
}

// Config holds the construction parameters of a new graph.
type Config struct {
	VectorSize     int
	M              int
	EFConstruction int
	Metric         distance.Metric
}

// Create allocates and writes the header of an empty graph and returns the
// header block id.
func Create(host Host, cfg Config) (storage.BlockID, error) {
	if err := distance.ValidateVectorSize(cfg.Metric, cfg.VectorSize); err != nil {
		return storage.NilBlock, err
	}

	root, err := host.Blocks.Allocate(graph.HeaderSize)
	if err != nil {
		return storage.NilBlock, err
	}
	opts := graph.Options{
		VectorSize:     uint32(cfg.VectorSize),
		M:              uint16(cfg.M),
		EFConstruction: uint16(cfg.EFConstruction),
		Metric:         cfg.Metric,
		Root:           root,
	}
	if err := writeHeader(host.Blocks, &opts); err != nil {
		return storage.NilBlock, err
	}
	return root, nil
}

// ReadHeader loads the header of the graph rooted at root.
func ReadHeader(blocks storage.BlockStore, root storage.BlockID) (graph.Options, error) {
	var opts graph.Options
	data, err := blocks.Read(root)
	if err != nil {
		return opts, err
	}
	if err := opts.UnmarshalBinary(data); err != nil {
		return opts, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if opts.Root != root {
		return opts, fmt.Errorf("%w: header root %d stored at block %d", ErrCorrupt, opts.Root, root)
	}
	return opts, nil
}

func writeHeader(blocks storage.BlockStore, opts *graph.Options) error {
	data, err := opts.MarshalBinary()
	if err != nil {
		return err
	}
	return blocks.WriteAt(opts.Root, 0, data)
}

// cachedNode is one entry of the node table.
type cachedNode struct {
	graph.Node

	vector   []byte
	location storage.BlockID
	visited  uint32
	dirty    bool
}

// SearchState is the working set of one graph for the duration of a host
// transaction.
type SearchState struct {
	host     Host
	opts     graph.Options
	sim      distance.Similarity
	vectors  *vectorstore.Store
	postings *postings.Store

	nodes []*cachedNode
	slots map[uint64]int32

	generation uint32
	candidates *priorityQueue
	results    *priorityQueue
}

// Open loads the graph rooted at root.
func Open(host Host, root storage.BlockID) (*SearchState, error) {
	opts, err := ReadHeader(host.Blocks, root)
	if err != nil {
		return nil, err
	}
	sim, err := distance.New(opts.Metric, int(opts.VectorSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	s := &SearchState{
		host:       host,
		opts:       opts,
		sim:        sim,
		postings:   postings.New(host.Blocks, host.Large),
		slots:      make(map[uint64]int32),
		candidates: newPriorityQueue(false),
		results:    newPriorityQueue(true),
	}
	s.vectors = vectorstore.New(host.Blocks, int(opts.VectorSize), &s.opts.Cursor)
	return s, nil
}

// Options returns the current graph header.
func (s *SearchState) Options() graph.Options {
	return s.opts
}

// Similarity returns the metric of the graph.
func (s *SearchState) Similarity() distance.Similarity {
	return s.sim
}

// Node returns the node with the given id, loading it on first access.
func (s *SearchState) Node(id uint64) (*graph.Node, error) {
	n, err := s.node(id)
	if err != nil {
		return nil, err
	}
	return &n.Node, nil
}

func (s *SearchState) node(id uint64) (*cachedNode, error) {
	if slot, ok := s.slots[id]; ok {
		return s.nodes[slot], nil
	}
	if id == 0 || id > s.opts.VectorCount {
		return nil, &ErrNodeNotFound{ID: id}
	}

	v, ok, err := s.host.Index.Get(graph.NodeKey(s.opts.Root, id))
	if err != nil {
		return nil, err
	}
	loc, valid := graph.DecodeUint64(v)
	if !ok || !valid {
		return nil, &ErrNodeNotFound{ID: id}
	}

	data, err := s.host.Blocks.Read(storage.BlockID(loc))
	if err != nil {
		return nil, fmt.Errorf("%w: node %d: %w", ErrCorrupt, id, err)
	}
	r, err := graph.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: node %d: %w", ErrCorrupt, id, err)
	}
	n := &cachedNode{location: storage.BlockID(loc)}
	n.ID = id
	if err := r.LoadInto(&n.Node); err != nil {
		return nil, fmt.Errorf("%w: node %d: %w", ErrCorrupt, id, err)
	}
	s.add(n)
	return n, nil
}

func (s *SearchState) add(n *cachedNode) {
	s.slots[n.ID] = int32(len(s.nodes))
	s.nodes = append(s.nodes, n)
}

func (s *SearchState) vectorOf(n *cachedNode) ([]byte, error) {
	if n.vector == nil {
		v, err := s.vectors.Read(n.Vector)
		if err != nil {
			return nil, fmt.Errorf("%w: node %d: %w", ErrCorrupt, n.ID, err)
		}
		n.vector = v
	}
	return n.vector, nil
}

func (s *SearchState) distanceTo(query []byte, n *cachedNode) (float32, error) {
	v, err := s.vectorOf(n)
	if err != nil {
		return 0, err
	}
	return s.sim.Distance(query, v), nil
}

// nextGeneration starts a new traversal; every node counts as unvisited.
func (s *SearchState) nextGeneration() {
	s.generation++
	if s.generation == 0 {
		for _, n := range s.nodes {
			n.visited = 0
		}
		s.generation = 1
	}
}

// visit marks n and reports whether it was already visited in the current
// generation.
func (s *SearchState) visit(n *cachedNode) bool {
	if n.visited == s.generation {
		return true
	}
	n.visited = s.generation
	return false
}

// persist writes every dirty node, reusing its block when the encoded size is
// unchanged, followed by the header.
func (s *SearchState) persist() (int, error) {
	written := 0
	for _, n := range s.nodes {
		if !n.dirty {
			continue
		}
		data := graph.Encode(&n.Node)

		if n.location != storage.NilBlock {
			old, err := s.host.Blocks.Read(n.location)
			if err != nil {
				return written, err
			}
			if len(old) == len(data) {
				if err := s.host.Blocks.WriteAt(n.location, 0, data); err != nil {
					return written, err
				}
				n.dirty = false
				written++
				continue
			}
			if err := s.host.Blocks.Free(n.location); err != nil {
				return written, err
			}
		}

		loc, err := s.host.Blocks.Allocate(len(data))
		if err != nil {
			return written, err
		}
		if err := s.host.Blocks.WriteAt(loc, 0, data); err != nil {
			return written, err
		}
		if err := s.host.Index.Put(graph.NodeKey(s.opts.Root, n.ID), graph.EncodeUint64(uint64(loc))); err != nil {
			return written, err
		}
		n.location = loc
		n.dirty = false
		written++
	}
	return written, writeHeader(s.host.Blocks, &s.opts)
}

// lookup resolves a content hash to its node id.
func (s *SearchState) lookup(hash Hash) (uint64, bool, error) {
	v, ok, err := s.host.Index.Get(graph.HashKey(s.opts.Root, hash[:]))
	if err != nil || !ok {
		return 0, false, err
	}
	ref, valid := graph.DecodeUint64(v)
	if !valid {
		return 0, false, fmt.Errorf("%w: vector reference of %x", ErrCorrupt, hash[:8])
	}

	v, ok, err = s.host.Index.Get(graph.VectorKey(s.opts.Root, ref))
	if err != nil {
		return 0, false, err
	}
	id, valid := graph.DecodeUint64(v)
	if !ok || !valid {
		return 0, false, fmt.Errorf("%w: no node for vector %d", ErrCorrupt, ref)
	}
	return id, true, nil
}

// newNode appends an unwired node holding a copy of vec.
func (s *SearchState) newNode(vec []byte) uint64 {
	s.opts.VectorCount++
	n := &cachedNode{
		Node:   *graph.NewNode(s.opts.VectorCount, 0),
		vector: slices.Clone(vec),
		dirty:  true,
	}
	s.add(n)
	return n.ID
}

// storeVector writes the vector of a new node and registers its hash.
func (s *SearchState) storeVector(hash Hash, id uint64) error {
	n, err := s.node(id)
	if err != nil {
		return err
	}
	ref, err := s.vectors.Allocate(n.vector)
	if err != nil {
		return err
	}
	n.Vector = ref

	if err := s.host.Index.Put(graph.HashKey(s.opts.Root, hash[:]), graph.EncodeUint64(uint64(ref))); err != nil {
		return err
	}
	return s.host.Index.Put(graph.VectorKey(s.opts.Root, uint64(ref)), graph.EncodeUint64(id))
}

// Documents returns the committed document ids mapped to hash.
func (s *SearchState) Documents(hash Hash) ([]uint64, error) {
	id, found, err := s.lookup(hash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %x", ErrNotFound, hash[:8])
	}
	n, err := s.node(id)
	if err != nil {
		return nil, err
	}
	ids, err := s.postings.Load(n.Postings)
	if err != nil {
		return nil, err
	}
	for i, v := range ids {
		ids[i] = postings.ExternalID(v)
	}
	return ids, nil
}

// reset drops the node table and reloads the header.
func (s *SearchState) reset() error {
	opts, err := ReadHeader(s.host.Blocks, s.opts.Root)
	if err != nil {
		return err
	}
	s.opts = opts
	s.nodes = nil
	s.slots = make(map[uint64]int32)
	s.vectors = vectorstore.New(s.host.Blocks, int(opts.VectorSize), &s.opts.Cursor)
	return nil
}
