package hnsw

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecidx/distance"
	"github.com/hupe1980/vecidx/storage"
)

type testGraph struct {
	engine *storage.Engine
	host   Host
	root   storage.BlockID
	seed   uint64
}

func newTestGraph(t *testing.T, cfg Config) *testGraph {
	t.Helper()
	e := storage.NewEngine()
	host := Host{Blocks: e.Blocks, Index: e.Index, Large: e.Large}
	root, err := Create(host, cfg)
	require.NoError(t, err)
	return &testGraph{engine: e, host: host, root: root, seed: 42}
}

func (g *testGraph) open(t *testing.T) *SearchState {
	t.Helper()
	s, err := Open(g.host, g.root)
	require.NoError(t, err)
	return s
}

func (g *testGraph) registration(t *testing.T) *Registration {
	t.Helper()
	g.seed++
	return NewRegistration(g.open(t), rand.New(rand.NewPCG(g.seed, 7)))
}

// insert registers vecs[i] under document id i+1 in a single commit.
func (g *testGraph) insert(t *testing.T, vecs [][]byte) []Hash {
	t.Helper()
	reg := g.registration(t)
	hashes := make([]Hash, len(vecs))
	for i, v := range vecs {
		h, err := reg.Register(uint64(i+1), v)
		require.NoError(t, err)
		hashes[i] = h
	}
	_, err := reg.Commit()
	require.NoError(t, err)
	return hashes
}

func collect(t *testing.T, ns *NearestSearch, bufSize int) ([]uint64, []float32) {
	t.Helper()
	ids := make([]uint64, bufSize)
	scores := make([]float32, bufSize)

	var outIDs []uint64
	var outScores []float32
	for {
		n, err := ns.Fill(ids, scores)
		require.NoError(t, err)
		if n == 0 {
			return outIDs, outScores
		}
		outIDs = append(outIDs, ids[:n]...)
		outScores = append(outScores, scores[:n]...)
	}
}

func randomFloats(rng *rand.Rand, count, dim int) [][]float32 {
	out := make([][]float32, count)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		out[i] = v
	}
	return out
}

func encodeAll(vecs [][]float32, enc func([]float32) []byte) [][]byte {
	out := make([][]byte, len(vecs))
	for i, v := range vecs {
		out[i] = enc(v)
	}
	return out
}

func randomBits(rng *rand.Rand, count, size int) [][]byte {
	out := make([][]byte, count)
	for i := range out {
		v := make([]byte, size)
		for j := range v {
			v[j] = byte(rng.UintN(256))
		}
		out[i] = v
	}
	return out
}

func floatConfig(dim, m, ef int) Config {
	return Config{
		VectorSize:     dim * 4,
		M:              m,
		EFConstruction: ef,
		Metric:         distance.MetricCosineFloat,
	}
}
