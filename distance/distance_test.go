package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHamming(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []byte
		expected int
	}{
		{"Simple", []byte{0xFF, 0x00}, []byte{0x00, 0xFF}, 16},
		{"Identical", []byte{0xAA, 0x55}, []byte{0xAA, 0x55}, 0},
		{"Partial", []byte{0b11110000}, []byte{0b11111111}, 4},
		{"Wide", []byte{1, 0, 0, 0, 0, 0, 0, 0, 3}, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0}, 3},
		{"Empty", []byte{}, []byte{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Hamming(tt.a, tt.b))
		})
	}
}

func TestCosineFloat(t *testing.T) {
	sim, err := New(MetricCosineFloat, 12)
	require.NoError(t, err)
	assert.Equal(t, MetricCosineFloat, sim.Metric())

	a := EncodeFloat32([]float32{1, 0, 0})
	b := EncodeFloat32([]float32{0, 1, 0})
	c := EncodeFloat32([]float32{0.99, 0.01, 0})
	x := EncodeFloat32([]float32{0.3, -1.7, 2.9})

	assert.Equal(t, float32(0), sim.Distance(a, a))
	assert.Equal(t, float32(0), sim.Distance(x, x))
	assert.Equal(t, float32(1), sim.DistanceToScore(sim.Distance(x, x)))
	assert.InDelta(t, 1.0, sim.Distance(a, b), 1e-6)
	assert.InDelta(t, 0.00005, sim.Distance(a, c), 1e-4)
	assert.Less(t, sim.Distance(a, c), sim.Distance(a, b))

	assert.Equal(t, float32(0), sim.MinSimilarityToMaxDistance(1))
	assert.InDelta(t, 0.5, sim.MinSimilarityToMaxDistance(0.5), 1e-6)
}

func TestCosineInt8(t *testing.T) {
	sim, err := New(MetricCosineInt8, 3+4)
	require.NoError(t, err)

	a := QuantizeInt8([]float32{1, 0, 0})
	b := QuantizeInt8([]float32{0, 1, 0})
	c := QuantizeInt8([]float32{0.99, 0.01, 0})
	x := QuantizeInt8([]float32{0.3, -1.7, 2.9})

	assert.InDelta(t, 0.0, sim.Distance(x, x), 1e-6)
	assert.InDelta(t, 1.0, sim.DistanceToScore(sim.Distance(a, a)), 1e-6)
	assert.InDelta(t, 1.0, sim.Distance(a, b), 1e-6)
	assert.Less(t, sim.Distance(a, c), sim.Distance(a, b))
}

func TestHammingSimilarity(t *testing.T) {
	sim, err := New(MetricHamming, 2)
	require.NoError(t, err)

	a := []byte{0xFF, 0x00}
	b := []byte{0xFF, 0x0F}
	assert.Equal(t, float32(0), sim.Distance(a, a))
	assert.Equal(t, float32(1), sim.DistanceToScore(0))
	assert.Equal(t, float32(4), sim.Distance(a, b))
	assert.Equal(t, float32(0.75), sim.DistanceToScore(4))
	assert.Equal(t, float32(4), sim.MinSimilarityToMaxDistance(0.75))
}

func TestValidateVectorSize(t *testing.T) {
	var sizeErr *ErrInvalidVectorSize
	assert.ErrorAs(t, ValidateVectorSize(MetricCosineFloat, 6), &sizeErr)
	assert.ErrorAs(t, ValidateVectorSize(MetricCosineInt8, 4), &sizeErr)
	assert.ErrorAs(t, ValidateVectorSize(MetricHamming, 0), &sizeErr)
	assert.NoError(t, ValidateVectorSize(MetricHamming, 1))

	var metricErr *ErrUnsupportedMetric
	assert.ErrorAs(t, ValidateVectorSize(Metric(42), 8), &metricErr)
	_, err := New(Metric(0), 8)
	assert.ErrorAs(t, err, &metricErr)
}

func TestParseMetric(t *testing.T) {
	for _, m := range []Metric{MetricCosineFloat, MetricCosineInt8, MetricHamming} {
		got, err := ParseMetric(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMetric("l2")
	assert.Error(t, err)
}

func TestEncodingHelpers(t *testing.T) {
	v := []float32{1.5, -2, 0}
	assert.Equal(t, v, DecodeFloat32(EncodeFloat32(v)))

	q := DequantizeInt8(QuantizeInt8([]float32{1, -0.5, 0.25}))
	assert.InDeltaSlice(t, []float32{1, -0.5, 0.25}, q, 0.01)

	assert.Equal(t, []byte{0b00000101, 0b1}, PackBits([]bool{true, false, true, false, false, false, false, false, true}))
	assert.Equal(t, []byte{0b10}, BinarizeFloat32([]float32{-1, 2}))
}
