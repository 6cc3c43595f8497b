package postings

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/vecidx/storage"
)

// SmallCapacity is the largest posting list stored in a small block.
const SmallCapacity = 16

// ErrCorrupt is returned when a stored posting list cannot be decoded.
var ErrCorrupt = errors.New("postings: corrupt posting list")

// Store reads and merges posting lists.
type Store struct {
	blocks storage.BlockStore
	large  storage.LargeSets
}

// New creates a Store over the host block store and large set structure.
func New(blocks storage.BlockStore, large storage.LargeSets) *Store {
	return &Store{blocks: blocks, large: large}
}

// Load returns the sorted index form document ids of ref.
func (s *Store) Load(ref Ref) ([]uint64, error) {
	switch ref.Kind() {
	case KindEmpty:
		return nil, nil
	case KindSingle:
		return []uint64{ref.addr() << idShift}, nil
	case KindSmall:
		data, err := s.blocks.Read(storage.BlockID(ref.addr()))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return decodeSmall(data)
	default:
		it, err := s.large.Iterator(storage.BlockID(ref.addr()))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		var ids []uint64
		for it.HasNext() {
			ids = append(ids, it.Next())
		}
		return ids, nil
	}
}

// Merge applies ops in order to the list addressed by ref and returns the
// reference of the resulting list. An add followed by a remove of the same id
// cancels out.
func (s *Store) Merge(ref Ref, ops []Op) (Ref, error) {
	if len(ops) == 0 {
		return ref, nil
	}
	if ref.Kind() == KindLarge {
		return s.mergeLarge(ref, ops)
	}

	ids, err := s.Load(ref)
	if err != nil {
		return ref, err
	}
	return s.store(ref, apply(ids, ops))
}

func apply(ids []uint64, ops []Op) []uint64 {
	live := make(map[uint64]bool, len(ids)+len(ops))
	for _, id := range ids {
		live[id] = true
	}
	for _, op := range ops {
		live[op.ID()] = !op.Remove()
	}

	out := make([]uint64, 0, len(live))
	for id, ok := range live {
		if ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (s *Store) mergeLarge(ref Ref, ops []Op) (Ref, error) {
	set := storage.BlockID(ref.addr())
	for _, op := range ops {
		var err error
		if op.Remove() {
			err = s.large.Remove(set, op.ID())
		} else {
			err = s.large.Add(set, op.ID())
		}
		if err != nil {
			return ref, err
		}
	}

	n, err := s.large.Len(set)
	if err != nil {
		return ref, err
	}
	if n > SmallCapacity {
		return ref, nil
	}

	ids, err := s.Load(ref)
	if err != nil {
		return ref, err
	}
	if err := s.large.Drop(set); err != nil {
		return ref, err
	}
	return s.store(Empty, ids)
}

// store persists ids, releasing whatever backed prev unless a small block of
// the same size can be rewritten in place.
func (s *Store) store(prev Ref, ids []uint64) (Ref, error) {
	if len(ids) > SmallCapacity {
		if err := s.release(prev); err != nil {
			return prev, err
		}
		set, err := s.large.Create()
		if err != nil {
			return Empty, err
		}
		if err := s.large.Add(set, ids...); err != nil {
			return Empty, err
		}
		return packRef(KindLarge, uint64(set))
	}

	switch len(ids) {
	case 0:
		return Empty, s.release(prev)
	case 1:
		if err := s.release(prev); err != nil {
			return prev, err
		}
		return packRef(KindSingle, ExternalID(ids[0]))
	}

	encoded := encodeSmall(ids)
	if prev.Kind() == KindSmall {
		block := storage.BlockID(prev.addr())
		old, err := s.blocks.Read(block)
		if err != nil {
			return prev, err
		}
		if len(old) == len(encoded) {
			return prev, s.blocks.WriteAt(block, 0, encoded)
		}
	}
	if err := s.release(prev); err != nil {
		return prev, err
	}

	block, err := s.blocks.Allocate(len(encoded))
	if err != nil {
		return Empty, err
	}
	if err := s.blocks.WriteAt(block, 0, encoded); err != nil {
		return Empty, err
	}
	return packRef(KindSmall, uint64(block))
}

func (s *Store) release(ref Ref) error {
	switch ref.Kind() {
	case KindSmall:
		return s.blocks.Free(storage.BlockID(ref.addr()))
	case KindLarge:
		return s.large.Drop(storage.BlockID(ref.addr()))
	default:
		return nil
	}
}

// encodeSmall writes a uvarint count followed by uvarint deltas of the
// external ids.
func encodeSmall(ids []uint64) []byte {
	buf := make([]byte, 0, binary.MaxVarintLen64*(len(ids)+1))
	buf = binary.AppendUvarint(buf, uint64(len(ids)))
	var prev uint64
	for _, id := range ids {
		ext := ExternalID(id)
		buf = binary.AppendUvarint(buf, ext-prev)
		prev = ext
	}
	return buf
}

func decodeSmall(data []byte) ([]uint64, error) {
	n, off := binary.Uvarint(data)
	if off <= 0 || n > SmallCapacity {
		return nil, ErrCorrupt
	}
	ids := make([]uint64, n)
	var prev uint64
	for i := range ids {
		delta, m := binary.Uvarint(data[off:])
		if m <= 0 {
			return nil, ErrCorrupt
		}
		off += m
		prev += delta
		ids[i] = prev << idShift
	}
	return ids, nil
}
