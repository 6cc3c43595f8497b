package storage

import (
	"errors"
	"fmt"
)

// BlockID addresses a block in a BlockStore. The zero value is never a valid
// block.
type BlockID uint64

// NilBlock is the reserved "no block" id.
const NilBlock BlockID = 0

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 4096

var (
	// ErrBlockNotFound is returned when a block id does not exist.
	ErrBlockNotFound = errors.New("storage: block not found")

	// ErrSetNotFound is returned when a large set id does not exist.
	ErrSetNotFound = errors.New("storage: large set not found")
)

// ErrOutOfRange indicates a write beyond the end of a block.
type ErrOutOfRange struct {
	ID     BlockID
	Offset int
	Length int
	Size   int
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("storage: write [%d,%d) out of range for block %d of size %d",
		e.Offset, e.Offset+e.Length, e.ID, e.Size)
}

// BlockStore allocates, reads, writes and frees blocks.
type BlockStore interface {
	// Allocate reserves a zeroed block of size bytes.
	Allocate(size int) (BlockID, error)

	// Read returns the contents of a block. The returned slice must be
	// treated as read-only.
	Read(id BlockID) ([]byte, error)

	// WriteAt copies data into the block starting at off.
	WriteAt(id BlockID, off int, data []byte) error

	// Free releases the block.
	Free(id BlockID) error

	// Pages reports how many pages a block of size bytes occupies.
	Pages(size int) int

	// PageSize returns the size of a single page in bytes.
	PageSize() int
}

// KVIndex is a persistent ordered key/value index.
type KVIndex interface {
	// Get returns the value stored under key.
	Get(key []byte) ([]byte, bool, error)

	// Put stores value under key, replacing any previous value.
	Put(key, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key []byte) error

	// Scan visits all entries whose key starts with prefix in ascending key
	// order until fn returns false.
	Scan(prefix []byte, fn func(key, value []byte) bool) error
}

// Uint64Iterator iterates a large set in ascending order.
type Uint64Iterator interface {
	HasNext() bool
	Next() uint64
}

// LargeSets maintains persistent ordered sets of uint64 values.
type LargeSets interface {
	// Create allocates a new empty set.
	Create() (BlockID, error)

	// Add inserts values into the set.
	Add(id BlockID, values ...uint64) error

	// Remove deletes values from the set.
	Remove(id BlockID, values ...uint64) error

	// Len returns the cardinality of the set.
	Len(id BlockID) (uint64, error)

	// Iterator returns an ascending iterator over the set.
	Iterator(id BlockID) (Uint64Iterator, error)

	// Drop removes the set and frees its backing block.
	Drop(id BlockID) error
}
