package storage

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// MemoryLargeSets is a LargeSets implementation holding one roaring bitmap per
// set. Every set owns a one-byte block in the underlying BlockStore so set ids
// share the block id space.
type MemoryLargeSets struct {
	mu     sync.RWMutex
	blocks BlockStore
	sets   map[BlockID]*roaring64.Bitmap
}

// NewMemoryLargeSets creates an empty collection of sets.
func NewMemoryLargeSets(blocks BlockStore) *MemoryLargeSets {
	return &MemoryLargeSets{
		blocks: blocks,
		sets:   make(map[BlockID]*roaring64.Bitmap),
	}
}

// Create implements LargeSets.
func (s *MemoryLargeSets) Create() (BlockID, error) {
	id, err := s.blocks.Allocate(1)
	if err != nil {
		return NilBlock, err
	}
	s.mu.Lock()
	s.sets[id] = roaring64.New()
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryLargeSets) get(id BlockID) (*roaring64.Bitmap, error) {
	bm, ok := s.sets[id]
	if !ok {
		return nil, ErrSetNotFound
	}
	return bm, nil
}

// Add implements LargeSets.
func (s *MemoryLargeSets) Add(id BlockID, values ...uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bm, err := s.get(id)
	if err != nil {
		return err
	}
	bm.AddMany(values)
	return nil
}

// Remove implements LargeSets.
func (s *MemoryLargeSets) Remove(id BlockID, values ...uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bm, err := s.get(id)
	if err != nil {
		return err
	}
	for _, v := range values {
		bm.Remove(v)
	}
	return nil
}

// Len implements LargeSets.
func (s *MemoryLargeSets) Len(id BlockID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bm, err := s.get(id)
	if err != nil {
		return 0, err
	}
	return bm.GetCardinality(), nil
}

// Iterator implements LargeSets. The iterator walks a private copy so later
// mutations do not affect it.
func (s *MemoryLargeSets) Iterator(id BlockID) (Uint64Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bm, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return bm.Clone().Iterator(), nil
}

// Drop implements LargeSets.
func (s *MemoryLargeSets) Drop(id BlockID) error {
	s.mu.Lock()
	if _, err := s.get(id); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.sets, id)
	s.mu.Unlock()

	return s.blocks.Free(id)
}

// Count returns the number of live sets.
func (s *MemoryLargeSets) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets)
}
