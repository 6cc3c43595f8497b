package graph

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/hupe1980/vecidx/distance"
	"github.com/hupe1980/vecidx/internal/hash"
	"github.com/hupe1980/vecidx/internal/vectorstore"
	"github.com/hupe1980/vecidx/storage"
)

// HeaderSize is the encoded size of Options.
const HeaderSize = 46

const (
	headerMagic   = "HNSW"
	headerVersion = 1
)

// ErrCorruptHeader is returned when a graph header cannot be decoded.
var ErrCorruptHeader = errors.New("graph: corrupt header")

// Options is the persisted header of one graph.
type Options struct {
	VectorSize     uint32
	M              uint16
	EFConstruction uint16
	Metric         distance.Metric
	VectorCount    uint64

	// Root is the block holding this header. It also namespaces the graph's
	// keys in the host index.
	Root storage.BlockID

	// Cursor is the vector batch block currently being filled.
	Cursor vectorstore.Cursor
}

// MaxLevel returns floor(log2(VectorCount)), the highest level of the graph.
func (o *Options) MaxLevel() int {
	return LevelCap(o.VectorCount)
}

// LevelCap returns floor(log2(n)) for n >= 1 and 0 otherwise.
func LevelCap(n uint64) int {
	if n <= 1 {
		return 0
	}
	return bits.Len64(n) - 1
}

// MarshalBinary encodes the header into HeaderSize bytes:
//
//	magic(4) version(1) metric(1) M(2) ef(2) vectorSize(4) count(8)
//	root(8) cursorBlock(8) cursorSlot(4) crc32c(4)
func (o *Options) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	le := binary.LittleEndian
	copy(buf, headerMagic)
	buf[4] = headerVersion
	buf[5] = byte(o.Metric)
	le.PutUint16(buf[6:], o.M)
	le.PutUint16(buf[8:], o.EFConstruction)
	le.PutUint32(buf[10:], o.VectorSize)
	le.PutUint64(buf[14:], o.VectorCount)
	le.PutUint64(buf[22:], uint64(o.Root))
	le.PutUint64(buf[30:], uint64(o.Cursor.Block))
	le.PutUint32(buf[38:], o.Cursor.Slot)
	le.PutUint32(buf[42:], hash.CRC32C(buf[:42]))
	return buf, nil
}

// UnmarshalBinary decodes a header written by MarshalBinary.
func (o *Options) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: %d bytes", ErrCorruptHeader, len(data))
	}
	le := binary.LittleEndian
	if string(data[:4]) != headerMagic || data[4] != headerVersion {
		return fmt.Errorf("%w: bad magic or version", ErrCorruptHeader)
	}
	if !hash.VerifyCRC32C(data[:42], le.Uint32(data[42:])) {
		return fmt.Errorf("%w: checksum mismatch", ErrCorruptHeader)
	}
	*o = Options{
		Metric:         distance.Metric(data[5]),
		M:              le.Uint16(data[6:]),
		EFConstruction: le.Uint16(data[8:]),
		VectorSize:     le.Uint32(data[10:]),
		VectorCount:    le.Uint64(data[14:]),
		Root:           storage.BlockID(le.Uint64(data[22:])),
		Cursor: vectorstore.Cursor{
			Block: storage.BlockID(le.Uint64(data[30:])),
			Slot:  le.Uint32(data[38:]),
		},
	}
	return nil
}
