package vectorstore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecidx/internal/tagged"
	"github.com/hupe1980/vecidx/storage"
)

const (
	tagSingle uint8 = iota
	tagBatched
)

// slotBits bounds the number of slots in a batch block.
const slotBits = 8

var refLayout = tagged.Layout{Bits: 1}

// ErrInvalidRef is returned when a Ref does not address a stored vector.
var ErrInvalidRef = errors.New("vectorstore: invalid vector reference")

// ErrVectorSize indicates a vector of the wrong byte length.
type ErrVectorSize struct {
	Expected int
	Actual   int
}

func (e *ErrVectorSize) Error() string {
	return fmt.Sprintf("vectorstore: vector size mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Ref addresses a stored vector. The zero Ref addresses nothing.
type Ref uint64

// Batched reports whether the vector lives in a shared batch block.
func (r Ref) Batched() bool {
	return refLayout.Tag(uint64(r)) == tagBatched
}

func (r Ref) locate() (storage.BlockID, int) {
	addr := refLayout.Addr(uint64(r))
	if !r.Batched() {
		return storage.BlockID(addr), 0
	}
	return storage.BlockID(addr >> slotBits), int(addr & (1<<slotBits - 1))
}

// Cursor tracks the batch block currently being filled. The zero Cursor means
// the next allocation starts a new block.
type Cursor struct {
	Block storage.BlockID
	Slot  uint32
}

// Store allocates and reads fixed-size vectors of one graph.
type Store struct {
	blocks storage.BlockStore
	size   int
	batch  int
	cursor *Cursor
}

// New creates a Store for vectors of vectorSize bytes. cursor is updated in
// place as batch blocks fill up and must be persisted by the caller.
func New(blocks storage.BlockStore, vectorSize int, cursor *Cursor) *Store {
	return &Store{
		blocks: blocks,
		size:   vectorSize,
		batch:  BatchSize(vectorSize, blocks),
		cursor: cursor,
	}
}

// VectorSize returns the byte size of every vector in the store.
func (s *Store) VectorSize() int { return s.size }

// BatchSize returns the number of vectors packed per block.
func (s *Store) BatchSize() int { return s.batch }

// Allocate writes vec to storage and returns its reference.
func (s *Store) Allocate(vec []byte) (Ref, error) {
	if len(vec) != s.size {
		return 0, &ErrVectorSize{Expected: s.size, Actual: len(vec)}
	}

	if s.batch == 1 {
		id, err := s.blocks.Allocate(s.size)
		if err != nil {
			return 0, err
		}
		if err := s.blocks.WriteAt(id, 0, vec); err != nil {
			return 0, err
		}
		w, err := refLayout.Pack(tagSingle, uint64(id))
		if err != nil {
			return 0, err
		}
		return Ref(w), nil
	}

	if s.cursor.Block == storage.NilBlock {
		id, err := s.blocks.Allocate(s.batch * s.size)
		if err != nil {
			return 0, err
		}
		*s.cursor = Cursor{Block: id}
	}

	block, slot := s.cursor.Block, int(s.cursor.Slot)
	if err := s.blocks.WriteAt(block, slot*s.size, vec); err != nil {
		return 0, err
	}
	w, err := refLayout.Pack(tagBatched, uint64(block)<<slotBits|uint64(slot))
	if err != nil {
		return 0, err
	}

	s.cursor.Slot++
	if int(s.cursor.Slot) == s.batch {
		*s.cursor = Cursor{}
	}
	return Ref(w), nil
}

// Read returns the bytes of the vector addressed by ref. The slice aliases
// storage and must not be modified.
func (s *Store) Read(ref Ref) ([]byte, error) {
	block, slot := ref.locate()
	if block == storage.NilBlock || slot >= s.batch {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRef, ref)
	}
	data, err := s.blocks.Read(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %d: %w", ErrInvalidRef, ref, err)
	}
	off := slot * s.size
	if off+s.size > len(data) {
		return nil, fmt.Errorf("%w: %d beyond block end", ErrInvalidRef, ref)
	}
	return data[off : off+s.size], nil
}
