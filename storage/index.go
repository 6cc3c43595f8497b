package storage

import (
	"bytes"

	"github.com/tidwall/btree"
)

type kvItem struct {
	key   []byte
	value []byte
}

func kvLess(a, b kvItem) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// MemoryIndex is a KVIndex backed by an in-memory B-tree.
type MemoryIndex struct {
	tree *btree.BTreeG[kvItem]
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		tree: btree.NewBTreeG[kvItem](kvLess),
	}
}

// Get implements KVIndex.
func (idx *MemoryIndex) Get(key []byte) ([]byte, bool, error) {
	item, ok := idx.tree.Get(kvItem{key: key})
	if !ok {
		return nil, false, nil
	}
	return item.value, true, nil
}

// Put implements KVIndex.
func (idx *MemoryIndex) Put(key, value []byte) error {
	idx.tree.Set(kvItem{
		key:   bytes.Clone(key),
		value: bytes.Clone(value),
	})
	return nil
}

// Delete implements KVIndex.
func (idx *MemoryIndex) Delete(key []byte) error {
	idx.tree.Delete(kvItem{key: key})
	return nil
}

// Scan implements KVIndex.
func (idx *MemoryIndex) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	idx.tree.Ascend(kvItem{key: prefix}, func(item kvItem) bool {
		if !bytes.HasPrefix(item.key, prefix) {
			return false
		}
		return fn(item.key, item.value)
	})
	return nil
}

// Len returns the number of entries.
func (idx *MemoryIndex) Len() int {
	return idx.tree.Len()
}
