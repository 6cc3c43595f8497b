package hnsw

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"golang.org/x/crypto/blake2b"

	"github.com/hupe1980/vecidx/internal/graph"
	"github.com/hupe1980/vecidx/internal/postings"
	"github.com/hupe1980/vecidx/internal/vectorstore"
)

// ErrFinalized is returned when a committed or discarded registration is
// used again.
var ErrFinalized = errors.New("hnsw: registration already finalized")

// Hash is the content hash of a raw vector.
type Hash [blake2b.Size256]byte

// HashVector returns the content hash of vec.
func HashVector(vec []byte) Hash {
	return blake2b.Sum256(vec)
}

// pendingChange collects the posting list operations of one vector.
type pendingChange struct {
	hash    Hash
	node    uint64
	created bool
	ops     []postings.Op
}

// CommitStats summarizes a commit.
type CommitStats struct {
	// NodesCreated is the number of nodes wired into the graph.
	NodesCreated int
	// PostingsMerged is the number of posting lists touched.
	PostingsMerged int
	// NodesWritten is the number of node records persisted.
	NodesWritten int
	// Operations is the number of add and remove operations applied.
	Operations int
}

// Registration batches insertions and removals of one transaction.
type Registration struct {
	state     *SearchState
	rng       *rand.Rand
	pending   map[Hash]*pendingChange
	order     []*pendingChange
	created   []*pendingChange
	finalized bool
}

// NewRegistration creates a registration writing through state. rng drives
// level assignment.
func NewRegistration(state *SearchState, rng *rand.Rand) *Registration {
	return &Registration{
		state:   state,
		rng:     rng,
		pending: make(map[Hash]*pendingChange),
	}
}

// Pending returns the number of distinct vectors touched so far.
func (r *Registration) Pending() int {
	return len(r.order)
}

// Register maps docID to vec and returns the content hash of vec.
func (r *Registration) Register(docID uint64, vec []byte) (Hash, error) {
	if r.finalized {
		return Hash{}, ErrFinalized
	}
	if size := r.state.vectors.VectorSize(); len(vec) != size {
		return Hash{}, &vectorstore.ErrVectorSize{Expected: size, Actual: len(vec)}
	}
	internal, err := postings.InternalID(docID)
	if err != nil {
		return Hash{}, err
	}

	hash := HashVector(vec)
	pc, err := r.change(hash, vec)
	if err != nil {
		return Hash{}, err
	}
	pc.ops = append(pc.ops, postings.AddOp(internal))
	return hash, nil
}

// Remove unmaps docID from the vector identified by hash.
func (r *Registration) Remove(docID uint64, hash Hash) error {
	if r.finalized {
		return ErrFinalized
	}
	internal, err := postings.InternalID(docID)
	if err != nil {
		return err
	}

	pc, err := r.change(hash, nil)
	if err != nil {
		return err
	}
	pc.ops = append(pc.ops, postings.RemoveOp(internal))
	return nil
}

// change returns the pending change of hash, creating a node for vec when the
// hash is unknown. A nil vec never creates a node.
func (r *Registration) change(hash Hash, vec []byte) (*pendingChange, error) {
	if pc, ok := r.pending[hash]; ok {
		return pc, nil
	}

	id, found, err := r.state.lookup(hash)
	if err != nil {
		return nil, err
	}
	if !found {
		if vec == nil {
			return nil, fmt.Errorf("%w: %x", ErrNotFound, hash[:8])
		}
		id = r.state.newNode(vec)
	}

	pc := &pendingChange{hash: hash, node: id, created: !found}
	r.pending[hash] = pc
	r.order = append(r.order, pc)
	if pc.created {
		r.created = append(r.created, pc)
	}
	return pc, nil
}

// Lookup returns the committed document ids mapped to hash.
func (r *Registration) Lookup(hash Hash) ([]uint64, error) {
	return r.state.Documents(hash)
}

// Commit merges the pending posting list operations, wires new nodes into the
// graph and persists every touched node and the graph header. Calling Commit
// on a finalized registration panics.
func (r *Registration) Commit() (CommitStats, error) {
	if r.finalized {
		panic("hnsw: commit on finalized registration")
	}
	r.finalized = true

	s := r.state
	var stats CommitStats

	for _, pc := range r.created {
		if err := s.storeVector(pc.hash, pc.node); err != nil {
			return stats, err
		}
	}

	for _, pc := range r.order {
		n, err := s.node(pc.node)
		if err != nil {
			return stats, err
		}
		ref, err := s.postings.Merge(n.Postings, pc.ops)
		if err != nil {
			return stats, fmt.Errorf("merge postings of node %d: %w", n.ID, err)
		}
		if ref != n.Postings {
			n.Postings = ref
			n.dirty = true
		}
		stats.PostingsMerged++
		stats.Operations += len(pc.ops)
	}

	// Node ids are assigned in registration order, so created is ascending.
	for _, pc := range r.created {
		if err := r.insert(pc.node); err != nil {
			return stats, fmt.Errorf("insert node %d: %w", pc.node, err)
		}
		stats.NodesCreated++
	}

	written, err := s.persist()
	stats.NodesWritten = written
	return stats, err
}

// Discard finalizes the registration without writing anything.
func (r *Registration) Discard() error {
	if r.finalized {
		return nil
	}
	r.finalized = true
	r.pending, r.order, r.created = nil, nil, nil
	return r.state.reset()
}

func (r *Registration) randomLevel(limit int) int {
	level := 0
	for level < limit && r.rng.IntN(2) == 0 {
		level++
	}
	return level
}

// insert wires node id into the graph.
func (r *Registration) insert(id uint64) error {
	if id == graph.EntryPoint {
		return nil
	}
	s := r.state
	m, ef := int(s.opts.M), int(s.opts.EFConstruction)

	n, err := s.node(id)
	if err != nil {
		return err
	}
	vec, err := s.vectorOf(n)
	if err != nil {
		return err
	}

	top := graph.LevelCap(id)
	ep, err := s.node(graph.EntryPoint)
	if err != nil {
		return err
	}
	if ep.TopLevel() < top {
		ep.EnsureLevels(top)
		ep.dirty = true
	}

	level := r.randomLevel(top)
	n.EnsureLevels(level)
	n.dirty = true

	entries, err := s.CrossLevelDescent(vec, top)
	if err != nil {
		return err
	}

	for l := level; l >= 0; l-- {
		cands, err := s.LayerBeamSearch(entries[l], l, ef, vec, IncludeSeed)
		if err != nil {
			return err
		}
		cands = slices.DeleteFunc(cands, func(c Candidate) bool { return c.ID == id })
		if len(cands) > m {
			if cands, err = s.DiversityPrune(id, cands); err != nil {
				return err
			}
		}

		n.Levels[l] = candidateIDs(cands)
		for _, c := range cands {
			if err := r.link(c.ID, id, l); err != nil {
				return err
			}
		}
	}
	return nil
}

// link adds the edge from -> to on level and re-prunes from when its degree
// exceeds M.
func (r *Registration) link(from, to uint64, level int) error {
	s := r.state
	n, err := s.node(from)
	if err != nil {
		return err
	}
	n.EnsureLevels(level)
	n.Levels[level] = append(n.Levels[level], to)
	n.dirty = true

	if len(n.Levels[level]) <= int(s.opts.M) {
		return nil
	}

	vec, err := s.vectorOf(n)
	if err != nil {
		return err
	}
	cands := make([]Candidate, 0, len(n.Levels[level]))
	for _, id := range n.Levels[level] {
		nb, err := s.node(id)
		if err != nil {
			return err
		}
		d, err := s.distanceTo(vec, nb)
		if err != nil {
			return err
		}
		cands = append(cands, Candidate{ID: id, Distance: d})
	}
	kept, err := s.DiversityPrune(from, cands)
	if err != nil {
		return err
	}
	n.Levels[level] = candidateIDs(kept)
	return nil
}

func candidateIDs(cands []Candidate) []uint64 {
	ids := make([]uint64, len(cands))
	for i, c := range cands {
		ids[i] = c.ID
	}
	return ids
}
