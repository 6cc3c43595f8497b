package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecidx/internal/postings"
	"github.com/hupe1980/vecidx/internal/vectorstore"
)

func TestEncodeNormalizesLevels(t *testing.T) {
	n := &Node{
		ID:       5,
		Postings: postings.Ref(0x41),
		Vector:   vectorstore.Ref(0x303),
		Levels: [][]uint64{
			{9, 2, 5, 9, 1},
			{7},
		},
	}

	data := Encode(n)
	assert.Equal(t, []uint64{1, 2, 9}, n.Levels[0])

	r, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, postings.Ref(0x41), r.Postings())
	assert.Equal(t, vectorstore.Ref(0x303), r.Vector())
	assert.Equal(t, 2, r.LevelCount())

	got := &Node{ID: 5}
	require.NoError(t, r.LoadInto(got))
	assert.Equal(t, n.Levels, got.Levels)
	assert.Equal(t, n.Postings, got.Postings)
	assert.Equal(t, n.Vector, got.Vector)
}

func TestEncodeEmptyLevels(t *testing.T) {
	n := NewNode(EntryPoint, 0)
	n.EnsureLevels(3)
	assert.Equal(t, 3, n.TopLevel())
	assert.Nil(t, n.Neighbors(7))

	r, err := Decode(Encode(n))
	require.NoError(t, err)

	got := &Node{}
	require.NoError(t, r.LoadInto(got))
	require.Len(t, got.Levels, 4)
	for _, ids := range got.Levels {
		assert.Empty(t, ids)
	}
}

func TestEncodeLengthStableForEqualShape(t *testing.T) {
	a := &Node{ID: 1, Levels: [][]uint64{{2, 3, 4}}}
	b := &Node{ID: 1, Levels: [][]uint64{{2, 3, 5}}}
	assert.Len(t, Encode(b), len(Encode(a)))
}

func TestDecodeCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"TruncatedHeader", []byte{1, 2}},
		{"ZeroLevels", []byte{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, ErrCorruptNode)
		})
	}

	t.Run("TruncatedLevel", func(t *testing.T) {
		r, err := Decode([]byte{0, 0, 1, 3, 1})
		require.NoError(t, err)
		assert.ErrorIs(t, r.LoadInto(&Node{}), ErrCorruptNode)
	})
}
