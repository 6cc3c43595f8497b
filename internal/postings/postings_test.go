package postings

import (
	"testing"

	"github.com/hupe1980/vecidx/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, *storage.Engine) {
	e := storage.NewEngine()
	return New(e.Blocks, e.Large), e
}

func adds(docIDs ...uint64) []Op {
	ops := make([]Op, len(docIDs))
	for i, id := range docIDs {
		ops[i] = AddOp(id << idShift)
	}
	return ops
}

func removes(docIDs ...uint64) []Op {
	ops := make([]Op, len(docIDs))
	for i, id := range docIDs {
		ops[i] = RemoveOp(id << idShift)
	}
	return ops
}

func external(t *testing.T, s *Store, ref Ref) []uint64 {
	t.Helper()
	c, err := s.Open(ref)
	require.NoError(t, err)
	var out []uint64
	for id, ok := c.Next(); ok; id, ok = c.Next() {
		out = append(out, id)
	}
	return out
}

func TestInternalID(t *testing.T) {
	id, err := InternalID(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), id)
	assert.Equal(t, uint64(5), ExternalID(id))

	_, err = InternalID(MaxDocumentID + 1)
	assert.ErrorIs(t, err, ErrReservedBits)

	op := RemoveOp(id)
	assert.True(t, op.Remove())
	assert.Equal(t, id, op.ID())
	assert.False(t, AddOp(id).Remove())
}

func TestMergeTransitions(t *testing.T) {
	s, e := newTestStore()

	ref, err := s.Merge(Empty, adds(7))
	require.NoError(t, err)
	assert.Equal(t, KindSingle, ref.Kind())
	assert.Equal(t, []uint64{7}, external(t, s, ref))
	assert.Equal(t, 0, e.Blocks.Len())

	ref, err = s.Merge(ref, adds(3, 9))
	require.NoError(t, err)
	assert.Equal(t, KindSmall, ref.Kind())
	assert.Equal(t, []uint64{3, 7, 9}, external(t, s, ref))
	assert.Equal(t, 1, e.Blocks.Len())

	var many []uint64
	for i := uint64(100); i < 120; i++ {
		many = append(many, i)
	}
	ref, err = s.Merge(ref, adds(many...))
	require.NoError(t, err)
	assert.Equal(t, KindLarge, ref.Kind())
	assert.Len(t, external(t, s, ref), 23)
	// Small block freed, one block backs the large set.
	assert.Equal(t, 1, e.Blocks.Len())
	assert.Equal(t, 1, e.Large.Count())

	ref, err = s.Merge(ref, removes(many...))
	require.NoError(t, err)
	assert.Equal(t, KindSmall, ref.Kind())
	assert.Equal(t, []uint64{3, 7, 9}, external(t, s, ref))
	assert.Equal(t, 0, e.Large.Count())

	ref, err = s.Merge(ref, removes(3, 9))
	require.NoError(t, err)
	assert.Equal(t, KindSingle, ref.Kind())
	assert.Equal(t, 0, e.Blocks.Len())

	ref, err = s.Merge(ref, removes(7))
	require.NoError(t, err)
	assert.Equal(t, Empty, ref)
	assert.Nil(t, external(t, s, ref))
}

func TestMergeLargeToEmpty(t *testing.T) {
	s, e := newTestStore()

	var many []uint64
	for i := uint64(1); i <= 40; i++ {
		many = append(many, i)
	}
	ref, err := s.Merge(Empty, adds(many...))
	require.NoError(t, err)
	require.Equal(t, KindLarge, ref.Kind())

	ref, err = s.Merge(ref, removes(many...))
	require.NoError(t, err)
	assert.Equal(t, Empty, ref)
	assert.Equal(t, 0, e.Large.Count())
	assert.Equal(t, 0, e.Blocks.Len())
}

func TestMergeSmallReusesBlock(t *testing.T) {
	s, e := newTestStore()

	ref, err := s.Merge(Empty, adds(1, 2, 3))
	require.NoError(t, err)
	require.Equal(t, KindSmall, ref.Kind())

	// Same encoded size: rewritten in place.
	next, err := s.Merge(ref, append(removes(3), adds(4)...))
	require.NoError(t, err)
	assert.Equal(t, ref, next)
	assert.Equal(t, []uint64{1, 2, 4}, external(t, s, next))

	// Larger: moved to a new block, old one freed.
	moved, err := s.Merge(next, adds(5))
	require.NoError(t, err)
	assert.NotEqual(t, next, moved)
	assert.Equal(t, 1, e.Blocks.Len())
	assert.Equal(t, []uint64{1, 2, 4, 5}, external(t, s, moved))
}

func TestMergeOrdering(t *testing.T) {
	s, _ := newTestStore()

	tests := []struct {
		name     string
		initial  []uint64
		ops      []Op
		expected []uint64
	}{
		{"add then remove cancels", nil, append(adds(1), removes(1)...), nil},
		{"remove then add keeps", []uint64{1}, append(removes(1), adds(1)...), []uint64{1}},
		{"duplicate adds collapse", nil, adds(2, 2, 2), []uint64{2}},
		{"remove missing is a no-op", []uint64{4}, removes(8), []uint64{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := s.Merge(Empty, adds(tt.initial...))
			require.NoError(t, err)
			ref, err = s.Merge(ref, tt.ops)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, external(t, s, ref))
		})
	}
}

func TestMergeNoOps(t *testing.T) {
	s, _ := newTestStore()
	ref, err := s.Merge(Ref(0xdead<<2|1), nil)
	require.NoError(t, err)
	assert.Equal(t, Ref(0xdead<<2|1), ref)
}

func TestDecodeSmallCorrupt(t *testing.T) {
	_, err := decodeSmall(nil)
	assert.ErrorIs(t, err, ErrCorrupt)
	_, err = decodeSmall([]byte{3, 1})
	assert.ErrorIs(t, err, ErrCorrupt)
	_, err = decodeSmall([]byte{SmallCapacity + 1})
	assert.ErrorIs(t, err, ErrCorrupt)
}
