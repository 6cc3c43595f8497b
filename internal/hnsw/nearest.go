package hnsw

import (
	"errors"

	"github.com/hupe1980/vecidx/internal/postings"
	"github.com/hupe1980/vecidx/internal/vectorstore"
)

// ErrInvalidK is returned for a non-positive number of candidates.
var ErrInvalidK = errors.New("hnsw: number of candidates must be positive")

// NearestSearch streams the documents of a ranked candidate list.
type NearestSearch struct {
	state       *SearchState
	candidates  []Candidate
	maxDistance float32

	pos    int
	cursor *postings.Cursor
	score  float32
}

func (s *SearchState) checkQuery(k int, query []byte) error {
	if k <= 0 {
		return ErrInvalidK
	}
	if size := s.vectors.VectorSize(); len(query) != size {
		return &vectorstore.ErrVectorSize{Expected: size, Actual: len(query)}
	}
	return nil
}

func (s *SearchState) newNearestSearch(cands []Candidate, minSimilarity float32) *NearestSearch {
	return &NearestSearch{
		state:       s,
		candidates:  cands,
		maxDistance: s.sim.MinSimilarityToMaxDistance(minSimilarity),
	}
}

// ExactNearest scans every node and keeps the k nearest with live documents.
func (s *SearchState) ExactNearest(k int, query []byte, minSimilarity float32) (*NearestSearch, error) {
	if err := s.checkQuery(k, query); err != nil {
		return nil, err
	}

	heap := newPriorityQueue(true)
	for id := uint64(1); id <= s.opts.VectorCount; id++ {
		n, err := s.node(id)
		if err != nil {
			return nil, err
		}
		if n.Postings == postings.Empty {
			continue
		}
		d, err := s.distanceTo(query, n)
		if err != nil {
			return nil, err
		}
		heap.PushBounded(Candidate{ID: id, Distance: d}, k)
	}
	return s.newNearestSearch(heap.Drain(), minSimilarity), nil
}

// ApproximateNearest descends the graph and runs one level 0 beam search of
// width max(k, efConstruction), keeping the k nearest nodes with live
// documents.
func (s *SearchState) ApproximateNearest(k int, query []byte, minSimilarity float32) (*NearestSearch, error) {
	if err := s.checkQuery(k, query); err != nil {
		return nil, err
	}
	if s.opts.VectorCount == 0 {
		return s.newNearestSearch(nil, minSimilarity), nil
	}

	entries, err := s.CrossLevelDescent(query, s.opts.MaxLevel())
	if err != nil {
		return nil, err
	}
	beam := max(k, int(s.opts.EFConstruction))
	cands, err := s.LayerBeamSearch(entries[0], 0, beam, query, IncludeSeed|SkipEmpty)
	if err != nil {
		return nil, err
	}
	if len(cands) > k {
		cands = cands[:k]
	}
	return s.newNearestSearch(cands, minSimilarity), nil
}

// Candidates returns the ranked nodes of the search, nearest first.
func (ns *NearestSearch) Candidates() []Candidate {
	return ns.candidates
}

// Fill writes the next document ids and their scores into ids and scores and
// returns how many were written. Zero means the search is exhausted.
// Candidates farther than the minimum similarity allows are skipped.
func (ns *NearestSearch) Fill(ids []uint64, scores []float32) (int, error) {
	limit := min(len(ids), len(scores))
	count := 0
	for count < limit {
		if ns.cursor == nil {
			if ns.pos >= len(ns.candidates) {
				break
			}
			c := ns.candidates[ns.pos]
			ns.pos++
			if c.Distance > ns.maxDistance {
				continue
			}

			n, err := ns.state.node(c.ID)
			if err != nil {
				return count, err
			}
			cur, err := ns.state.postings.Open(n.Postings)
			if err != nil {
				return count, err
			}
			ns.cursor = cur
			ns.score = ns.state.sim.DistanceToScore(c.Distance)
		}

		id, ok := ns.cursor.Next()
		if !ok {
			ns.cursor = nil
			continue
		}
		ids[count] = id
		scores[count] = ns.score
		count++
	}
	return count, nil
}
