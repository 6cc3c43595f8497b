package distance

import (
	"encoding/binary"
	"math"
)

// EncodeFloat32 serializes v as little-endian float32 components, the layout
// expected by MetricCosineFloat.
func EncodeFloat32(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

// DecodeFloat32 is the inverse of EncodeFloat32.
func DecodeFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	decodeFloat32Into(out, b)
	return out
}

func decodeFloat32Into(dst []float32, b []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
}

// QuantizeInt8 maps v onto signed bytes using a symmetric per-vector scale
// and appends the scale as a trailing little-endian float32, the layout
// expected by MetricCosineInt8.
func QuantizeInt8(v []float32) []byte {
	var maxAbs float32
	for _, f := range v {
		if a := float32(math.Abs(float64(f))); a > maxAbs {
			maxAbs = a
		}
	}

	out := make([]byte, len(v)+int8ScaleSize)
	scale := maxAbs / 127
	if scale == 0 {
		scale = 1
	}
	for i, f := range v {
		q := math.Round(float64(f / scale))
		q = max(-127, min(127, q))
		out[i] = byte(int8(q))
	}
	binary.LittleEndian.PutUint32(out[len(v):], math.Float32bits(scale))
	return out
}

// DequantizeInt8 reconstructs approximate float components from a
// QuantizeInt8 vector.
func DequantizeInt8(b []byte) []float32 {
	n := len(b) - int8ScaleSize
	scale := math.Float32frombits(binary.LittleEndian.Uint32(b[n:]))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(int8(b[i])) * scale
	}
	return out
}

// PackBits packs a boolean vector into bytes, least significant bit first,
// the layout expected by MetricHamming.
func PackBits(v []bool) []byte {
	out := make([]byte, (len(v)+7)/8)
	for i, set := range v {
		if set {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

// BinarizeFloat32 packs the sign bits of v: a component > 0 becomes 1.
func BinarizeFloat32(v []float32) []byte {
	bools := make([]bool, len(v))
	for i, f := range v {
		bools[i] = f > 0
	}
	return PackBits(bools)
}
