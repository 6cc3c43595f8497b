package storage

import "sync"

// MemoryStore is an in-memory BlockStore.
// Block ids are assigned sequentially starting at 1 and are never reused.
type MemoryStore struct {
	mu       sync.RWMutex
	pageSize int
	nextID   BlockID
	blocks   map[BlockID][]byte
}

// NewMemoryStore creates an empty store with the given page size.
// A non-positive pageSize selects DefaultPageSize.
func NewMemoryStore(pageSize int) *MemoryStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &MemoryStore{
		pageSize: pageSize,
		nextID:   1,
		blocks:   make(map[BlockID][]byte),
	}
}

// Allocate implements BlockStore.
func (m *MemoryStore) Allocate(size int) (BlockID, error) {
	if size < 0 {
		size = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.blocks[id] = make([]byte, size)
	return id, nil
}

// Read implements BlockStore.
func (m *MemoryStore) Read(id BlockID) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blocks[id]
	if !ok {
		return nil, ErrBlockNotFound
	}
	return data, nil
}

// WriteAt implements BlockStore.
func (m *MemoryStore) WriteAt(id BlockID, off int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	block, ok := m.blocks[id]
	if !ok {
		return ErrBlockNotFound
	}
	if off < 0 || off+len(data) > len(block) {
		return &ErrOutOfRange{ID: id, Offset: off, Length: len(data), Size: len(block)}
	}
	copy(block[off:], data)
	return nil
}

// Free implements BlockStore.
func (m *MemoryStore) Free(id BlockID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blocks[id]; !ok {
		return ErrBlockNotFound
	}
	delete(m.blocks, id)
	return nil
}

// Pages implements BlockStore.
func (m *MemoryStore) Pages(size int) int {
	if size <= 0 {
		return 1
	}
	return (size + m.pageSize - 1) / m.pageSize
}

// PageSize implements BlockStore.
func (m *MemoryStore) PageSize() int {
	return m.pageSize
}

// Len returns the number of live blocks.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}

// BytesAllocated returns the page-rounded footprint of all live blocks.
func (m *MemoryStore) BytesAllocated() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, b := range m.blocks {
		total += int64(m.Pages(len(b)) * m.pageSize)
	}
	return total
}
