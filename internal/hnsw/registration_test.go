package hnsw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecidx/distance"
	"github.com/hupe1980/vecidx/internal/graph"
	"github.com/hupe1980/vecidx/internal/postings"
	"github.com/hupe1980/vecidx/internal/vectorstore"
	"github.com/hupe1980/vecidx/storage"
)

func TestRegisterDeduplicates(t *testing.T) {
	g := newTestGraph(t, floatConfig(2, 4, 10))
	v := distance.EncodeFloat32([]float32{0.5, 0.5})

	reg := g.registration(t)
	h1, err := reg.Register(10, v)
	require.NoError(t, err)
	h2, err := reg.Register(11, v)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, reg.Pending())

	stats, err := reg.Commit()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.NodesCreated)
	assert.Equal(t, 2, stats.Operations)

	// A later batch reuses the committed node.
	reg = g.registration(t)
	_, err = reg.Register(12, v)
	require.NoError(t, err)
	stats, err = reg.Commit()
	require.NoError(t, err)
	assert.Zero(t, stats.NodesCreated)

	s := g.open(t)
	assert.Equal(t, uint64(1), s.Options().VectorCount)
	docs, err := s.Documents(h1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 11, 12}, docs)
}

func TestRemoveTombstones(t *testing.T) {
	g := newTestGraph(t, floatConfig(2, 4, 10))
	vecs := [][]byte{
		distance.EncodeFloat32([]float32{1, 0}),
		distance.EncodeFloat32([]float32{0, 1}),
		distance.EncodeFloat32([]float32{1, 1}),
	}
	hashes := g.insert(t, vecs)

	reg := g.registration(t)
	require.NoError(t, reg.Remove(1, hashes[0]))
	_, err := reg.Commit()
	require.NoError(t, err)

	s := g.open(t)
	n, err := s.Node(1)
	require.NoError(t, err)
	assert.Equal(t, postings.Empty, n.Postings)
	assert.NotEmpty(t, n.Levels[0], "tombstones stay wired")

	docs, err := s.Documents(hashes[0])
	require.NoError(t, err)
	assert.Empty(t, docs)

	approx, err := s.ApproximateNearest(3, vecs[0], -1)
	require.NoError(t, err)
	assert.NotContains(t, candidateIDs(approx.Candidates()), uint64(1))

	exact, err := s.ExactNearest(3, vecs[0], -1)
	require.NoError(t, err)
	assert.NotContains(t, candidateIDs(exact.Candidates()), uint64(1))
	ids, _ := collect(t, exact, 4)
	assert.ElementsMatch(t, []uint64{2, 3}, ids)
}

func TestRegisterThenRemoveInOneBatch(t *testing.T) {
	g := newTestGraph(t, floatConfig(2, 4, 10))
	v := distance.EncodeFloat32([]float32{1, 2})

	reg := g.registration(t)
	h, err := reg.Register(5, v)
	require.NoError(t, err)
	require.NoError(t, reg.Remove(5, h))
	_, err = reg.Commit()
	require.NoError(t, err)

	s := g.open(t)
	assert.Equal(t, uint64(1), s.Options().VectorCount)
	docs, err := s.Documents(h)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLargePostingList(t *testing.T) {
	g := newTestGraph(t, floatConfig(2, 4, 10))
	v := distance.EncodeFloat32([]float32{3, 4})

	reg := g.registration(t)
	for doc := uint64(1); doc <= 40; doc++ {
		_, err := reg.Register(doc, v)
		require.NoError(t, err)
	}
	_, err := reg.Commit()
	require.NoError(t, err)
	assert.Equal(t, 1, g.engine.Large.Count())

	s := g.open(t)
	n, err := s.Node(1)
	require.NoError(t, err)
	assert.Equal(t, postings.KindLarge, n.Postings.Kind())

	ns, err := s.ApproximateNearest(1, v, 1)
	require.NoError(t, err)
	ids, scores := collect(t, ns, 7)
	require.Len(t, ids, 40)
	for i, id := range ids {
		assert.Equal(t, uint64(i+1), id)
		assert.Equal(t, float32(1), scores[i])
	}
}

func TestRegisterValidation(t *testing.T) {
	g := newTestGraph(t, floatConfig(2, 4, 10))
	reg := g.registration(t)

	_, err := reg.Register(1, []byte{1, 2, 3})
	var sizeErr *vectorstore.ErrVectorSize
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, 8, sizeErr.Expected)
	assert.Equal(t, 3, sizeErr.Actual)

	_, err = reg.Register(postings.MaxDocumentID+1, distance.EncodeFloat32([]float32{1, 0}))
	assert.ErrorIs(t, err, postings.ErrReservedBits)

	err = reg.Remove(1, HashVector([]byte("unknown")))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Zero(t, reg.Pending())
}

func TestCommitTwicePanics(t *testing.T) {
	g := newTestGraph(t, floatConfig(2, 4, 10))
	reg := g.registration(t)
	_, err := reg.Commit()
	require.NoError(t, err)

	assert.Panics(t, func() { _, _ = reg.Commit() })

	_, err = reg.Register(1, distance.EncodeFloat32([]float32{1, 0}))
	assert.ErrorIs(t, err, ErrFinalized)
}

func TestDiscard(t *testing.T) {
	g := newTestGraph(t, floatConfig(2, 4, 10))
	blocks := g.engine.Blocks.Len()

	reg := g.registration(t)
	_, err := reg.Register(1, distance.EncodeFloat32([]float32{1, 0}))
	require.NoError(t, err)
	require.NoError(t, reg.Discard())
	require.NoError(t, reg.Discard())

	assert.Panics(t, func() { _, _ = reg.Commit() })
	assert.Equal(t, blocks, g.engine.Blocks.Len())
	assert.Zero(t, g.open(t).Options().VectorCount)
}

func TestCommitPersistsNodes(t *testing.T) {
	g := newTestGraph(t, floatConfig(2, 4, 10))
	g.insert(t, [][]byte{
		distance.EncodeFloat32([]float32{1, 0}),
		distance.EncodeFloat32([]float32{0, 1}),
	})

	s := g.open(t)
	opts := s.Options()
	assert.Equal(t, uint64(2), opts.VectorCount)
	assert.Equal(t, 1, opts.MaxLevel())

	for id := uint64(1); id <= 2; id++ {
		v, ok, err := g.host.Index.Get(graph.NodeKey(g.root, id))
		require.NoError(t, err)
		require.True(t, ok)
		loc, valid := graph.DecodeUint64(v)
		require.True(t, valid)

		data, err := g.engine.Blocks.Read(storage.BlockID(loc))
		require.NoError(t, err)
		r, err := graph.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, postings.KindSingle, r.Postings().Kind())
	}

	n1, err := s.Node(1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, n1.Levels[0])
	assert.Equal(t, 1, n1.TopLevel())
}

func TestQueryValidation(t *testing.T) {
	g := newTestGraph(t, floatConfig(2, 4, 10))
	s := g.open(t)

	_, err := s.ExactNearest(0, distance.EncodeFloat32([]float32{1, 0}), 0)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = s.ApproximateNearest(1, []byte{1}, 0)
	var sizeErr *vectorstore.ErrVectorSize
	assert.ErrorAs(t, err, &sizeErr)

	ns, err := s.ApproximateNearest(1, distance.EncodeFloat32([]float32{1, 0}), 0)
	require.NoError(t, err)
	ids, _ := collect(t, ns, 1)
	assert.Empty(t, ids)
}
