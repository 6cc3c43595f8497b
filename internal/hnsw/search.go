package hnsw

import (
	"slices"

	"github.com/hupe1980/vecidx/internal/graph"
	"github.com/hupe1980/vecidx/internal/postings"
)

// SearchFlags adjust the result set of LayerBeamSearch.
type SearchFlags uint8

const (
	// IncludeSeed makes the entry node a valid result.
	IncludeSeed SearchFlags = 1 << iota

	// SkipEmpty keeps tombstoned nodes out of the result set. They are still
	// traversed.
	SkipEmpty
)

// CrossLevelDescent walks greedily from the entry point at maxLevel down to
// level 0 and returns the local minimum reached on every level, indexed by
// level.
func (s *SearchState) CrossLevelDescent(query []byte, maxLevel int) ([]uint64, error) {
	s.nextGeneration()

	cur, err := s.node(graph.EntryPoint)
	if err != nil {
		return nil, err
	}
	s.visit(cur)
	curDist, err := s.distanceTo(query, cur)
	if err != nil {
		return nil, err
	}

	reps := make([]uint64, maxLevel+1)
	for level := maxLevel; level >= 0; level-- {
		for {
			best, bestDist := cur, curDist
			for _, id := range cur.Neighbors(level) {
				next, err := s.node(id)
				if err != nil {
					return nil, err
				}
				if s.visit(next) {
					continue
				}
				d, err := s.distanceTo(query, next)
				if err != nil {
					return nil, err
				}
				if d < bestDist {
					best, bestDist = next, d
				}
			}
			if best == cur {
				break
			}
			cur, curDist = best, bestDist
		}
		reps[level] = cur.ID
	}
	return reps, nil
}

// LayerBeamSearch runs a bounded best-first search on one level starting at
// entry and returns up to beamWidth candidates nearest first.
func (s *SearchState) LayerBeamSearch(entry uint64, level, beamWidth int, query []byte, flags SearchFlags) ([]Candidate, error) {
	s.nextGeneration()
	candidates, results := s.candidates, s.results
	candidates.Reset()
	results.Reset()

	ep, err := s.node(entry)
	if err != nil {
		return nil, err
	}
	s.visit(ep)
	d, err := s.distanceTo(query, ep)
	if err != nil {
		return nil, err
	}
	seed := Candidate{ID: entry, Distance: d}
	candidates.Push(seed)
	if flags&IncludeSeed != 0 && s.keep(ep, flags) {
		results.Push(seed)
	}

	for candidates.Len() > 0 {
		cur, _ := candidates.Pop()
		if results.Len() >= beamWidth {
			if worst, _ := results.Top(); cur.Distance > worst.Distance {
				break
			}
		}

		n, err := s.node(cur.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range n.Neighbors(level) {
			next, err := s.node(id)
			if err != nil {
				return nil, err
			}
			if s.visit(next) {
				continue
			}
			d, err := s.distanceTo(query, next)
			if err != nil {
				return nil, err
			}
			c := Candidate{ID: id, Distance: d}

			if results.Len() >= beamWidth {
				if worst, _ := results.Top(); !closer(c, worst) {
					continue
				}
			}
			candidates.Push(c)
			if s.keep(next, flags) {
				results.PushBounded(c, beamWidth)
			}
		}
	}
	return results.Drain(), nil
}

func (s *SearchState) keep(n *cachedNode, flags SearchFlags) bool {
	return flags&SkipEmpty == 0 || n.Postings != postings.Empty
}

// DiversityPrune selects at most M candidates for target. A candidate is kept
// only if it is strictly closer to target than to every candidate kept
// before it. Candidate distances must be relative to target.
func (s *SearchState) DiversityPrune(target uint64, candidates []Candidate) ([]Candidate, error) {
	m := int(s.opts.M)
	sorted := slices.Clone(candidates)
	slices.SortFunc(sorted, func(a, b Candidate) int {
		if closer(a, b) {
			return -1
		}
		if closer(b, a) {
			return 1
		}
		return 0
	})

	kept := make([]Candidate, 0, m)
	keptVecs := make([][]byte, 0, m)
	for _, c := range sorted {
		if len(kept) >= m {
			break
		}
		if c.ID == target {
			continue
		}
		n, err := s.node(c.ID)
		if err != nil {
			return nil, err
		}
		vec, err := s.vectorOf(n)
		if err != nil {
			return nil, err
		}

		good := true
		for _, kv := range keptVecs {
			if s.sim.Distance(vec, kv) <= c.Distance {
				good = false
				break
			}
		}
		if good {
			kept = append(kept, c)
			keptVecs = append(keptVecs, vec)
		}
	}
	return kept, nil
}
