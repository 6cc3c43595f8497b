package distance

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/viterin/vek/vek32"
)

// Metric identifies a similarity metric. It is persisted in the graph header,
// so values must never be renumbered.
type Metric uint8

const (
	MetricCosineFloat Metric = iota + 1
	MetricCosineInt8
	MetricHamming
)

func (m Metric) String() string {
	switch m {
	case MetricCosineFloat:
		return "cosine"
	case MetricCosineInt8:
		return "cosine-int8"
	case MetricHamming:
		return "hamming"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// ParseMetric parses the String form of a metric.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cosine", "cosine-float":
		return MetricCosineFloat, nil
	case "cosine-int8", "int8":
		return MetricCosineInt8, nil
	case "hamming":
		return MetricHamming, nil
	default:
		return 0, &ErrUnsupportedMetric{Name: s}
	}
}

// ErrUnsupportedMetric indicates an unknown metric tag or name.
type ErrUnsupportedMetric struct {
	Metric Metric
	Name   string
}

func (e *ErrUnsupportedMetric) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unsupported metric: %q", e.Name)
	}
	return fmt.Sprintf("unsupported metric: %v", e.Metric)
}

// ErrInvalidVectorSize indicates a vector byte size that the metric cannot
// interpret.
type ErrInvalidVectorSize struct {
	Metric Metric
	Size   int
}

func (e *ErrInvalidVectorSize) Error() string {
	return fmt.Sprintf("invalid vector size %d for metric %v", e.Size, e.Metric)
}

// Similarity computes distances between two vectors of the same byte size.
//
// Implementations keep decode scratch space and are not safe for concurrent
// use. Create one per goroutine.
type Similarity interface {
	// Metric returns the metric tag.
	Metric() Metric

	// Distance returns the distance between a and b. 0 means identical.
	Distance(a, b []byte) float32

	// DistanceToScore converts a distance into a similarity score.
	DistanceToScore(d float32) float32

	// MinSimilarityToMaxDistance converts a minimum score into the largest
	// distance that still satisfies it.
	MinSimilarityToMaxDistance(s float32) float32
}

// ValidateVectorSize checks that size bytes is a valid vector for m.
func ValidateVectorSize(m Metric, size int) error {
	switch m {
	case MetricCosineFloat:
		if size <= 0 || size%4 != 0 {
			return &ErrInvalidVectorSize{Metric: m, Size: size}
		}
	case MetricCosineInt8:
		if size <= int8ScaleSize {
			return &ErrInvalidVectorSize{Metric: m, Size: size}
		}
	case MetricHamming:
		if size <= 0 {
			return &ErrInvalidVectorSize{Metric: m, Size: size}
		}
	default:
		return &ErrUnsupportedMetric{Metric: m}
	}
	return nil
}

// New returns the Similarity for m over vectors of vectorSize bytes.
func New(m Metric, vectorSize int) (Similarity, error) {
	if err := ValidateVectorSize(m, vectorSize); err != nil {
		return nil, err
	}
	switch m {
	case MetricCosineFloat:
		dim := vectorSize / 4
		return &cosineFloat{a: make([]float32, dim), b: make([]float32, dim)}, nil
	case MetricCosineInt8:
		return cosineInt8{}, nil
	default:
		return hamming{bits: float32(vectorSize * 8)}, nil
	}
}

// cosineDistance turns a dot product and two squared magnitudes into 1-cos.
// Zero vectors are treated as orthogonal to everything.
func cosineDistance(dot, na, nb float64) float32 {
	if na == 0 || nb == 0 {
		return 1
	}
	cos := dot / math.Sqrt(na*nb)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return float32(1 - cos)
}

type cosineFloat struct {
	a, b []float32
}

func (*cosineFloat) Metric() Metric { return MetricCosineFloat }

func (c *cosineFloat) Distance(a, b []byte) float32 {
	// Kernel results may depend on slice alignment; identical inputs must
	// still compare as exactly 0.
	if bytes.Equal(a, b) {
		return 0
	}
	decodeFloat32Into(c.a, a)
	decodeFloat32Into(c.b, b)
	dot := vek32.Dot(c.a, c.b)
	na := vek32.Dot(c.a, c.a)
	nb := vek32.Dot(c.b, c.b)
	return cosineDistance(float64(dot), float64(na), float64(nb))
}

func (*cosineFloat) DistanceToScore(d float32) float32 { return 1 - d }

func (*cosineFloat) MinSimilarityToMaxDistance(s float32) float32 { return 1 - s }

const int8ScaleSize = 4

type cosineInt8 struct{}

func (cosineInt8) Metric() Metric { return MetricCosineInt8 }

func (cosineInt8) Distance(a, b []byte) float32 {
	n := len(a) - int8ScaleSize
	sa := float64(math.Float32frombits(binary.LittleEndian.Uint32(a[n:])))
	sb := float64(math.Float32frombits(binary.LittleEndian.Uint32(b[n:])))

	var dotq, naq, nbq int64
	for i := 0; i < n; i++ {
		x := int64(int8(a[i]))
		y := int64(int8(b[i]))
		dotq += x * y
		naq += x * x
		nbq += y * y
	}
	return cosineDistance(float64(dotq)*sa*sb, float64(naq)*sa*sa, float64(nbq)*sb*sb)
}

func (cosineInt8) DistanceToScore(d float32) float32 { return 1 - d }

func (cosineInt8) MinSimilarityToMaxDistance(s float32) float32 { return 1 - s }

type hamming struct {
	bits float32
}

func (hamming) Metric() Metric { return MetricHamming }

func (hamming) Distance(a, b []byte) float32 {
	return float32(Hamming(a, b))
}

func (h hamming) DistanceToScore(d float32) float32 {
	return (h.bits - d) / h.bits
}

func (h hamming) MinSimilarityToMaxDistance(s float32) float32 {
	return (1 - s) * h.bits
}

// Hamming counts the differing bits of two equally sized byte slices.
func Hamming(a, b []byte) int {
	n := 0
	i := 0
	for ; i+8 <= len(a); i += 8 {
		n += bits.OnesCount64(binary.LittleEndian.Uint64(a[i:]) ^ binary.LittleEndian.Uint64(b[i:]))
	}
	for ; i < len(a); i++ {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return n
}
