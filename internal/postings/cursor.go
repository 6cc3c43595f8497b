package postings

import (
	"fmt"

	"github.com/hupe1980/vecidx/storage"
)

// Cursor streams the document ids of one posting list in ascending order.
type Cursor struct {
	ids []uint64
	pos int
	it  storage.Uint64Iterator
}

// Open returns a cursor over ref. Large lists are streamed from the external
// structure instead of being materialized.
func (s *Store) Open(ref Ref) (*Cursor, error) {
	if ref.Kind() == KindLarge {
		it, err := s.large.Iterator(storage.BlockID(ref.addr()))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return &Cursor{it: it}, nil
	}
	ids, err := s.Load(ref)
	if err != nil {
		return nil, err
	}
	return &Cursor{ids: ids}, nil
}

// Next returns the next caller visible document id.
func (c *Cursor) Next() (uint64, bool) {
	if c.it != nil {
		if !c.it.HasNext() {
			return 0, false
		}
		return ExternalID(c.it.Next()), true
	}
	if c.pos >= len(c.ids) {
		return 0, false
	}
	id := c.ids[c.pos]
	c.pos++
	return ExternalID(id), true
}
