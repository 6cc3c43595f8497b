package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/vecidx/internal/hash"
)

// Compression selects the snapshot compression algorithm.
type Compression uint8

const (
	// CompressionNone stores the snapshot payload as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression.
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD compression.
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

const (
	snapshotMagic   = "VIDXSNAP"
	snapshotVersion = 1

	// magic(8) version(1) compression(1) rawLen(8) storedLen(8) crc(4)
	snapshotHeaderSize = 30

	// maxSnapshotSize bounds the decoded payload length read from a header.
	maxSnapshotSize = math.MaxInt32

	// lz4MaxRatio is the largest expansion an LZ4 block can encode.
	lz4MaxRatio = 255
)

var (
	// ErrBadSnapshot is returned when a snapshot cannot be decoded.
	ErrBadSnapshot = errors.New("storage: malformed snapshot")

	// ErrChecksumMismatch is returned when the snapshot payload is corrupted.
	ErrChecksumMismatch = errors.New("storage: snapshot checksum mismatch")
)

// Snapshot writes the full engine state to w.
func (e *Engine) Snapshot(w io.Writer, c Compression) error {
	raw, err := e.encode()
	if err != nil {
		return err
	}

	stored, used, err := compress(raw, c)
	if err != nil {
		return err
	}

	hdr := make([]byte, snapshotHeaderSize)
	copy(hdr, snapshotMagic)
	hdr[8] = snapshotVersion
	hdr[9] = byte(used)
	binary.LittleEndian.PutUint64(hdr[10:], uint64(len(raw)))
	binary.LittleEndian.PutUint64(hdr[18:], uint64(len(stored)))
	binary.LittleEndian.PutUint32(hdr[26:], hash.CRC32C(raw))

	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err = w.Write(stored)
	return err
}

// Restore reads an engine previously written by Snapshot.
func Restore(r io.Reader) (*Engine, error) {
	hdr := make([]byte, snapshotHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	if string(hdr[:8]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrBadSnapshot)
	}
	if hdr[8] != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, hdr[8])
	}
	c := Compression(hdr[9])
	rawLen := binary.LittleEndian.Uint64(hdr[10:])
	storedLen := binary.LittleEndian.Uint64(hdr[18:])
	checksum := binary.LittleEndian.Uint32(hdr[26:])

	if err := checkLengths(c, rawLen, storedLen); err != nil {
		return nil, err
	}

	stored, err := io.ReadAll(io.LimitReader(r, int64(storedLen)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	if uint64(len(stored)) != storedLen {
		return nil, fmt.Errorf("%w: payload truncated", ErrBadSnapshot)
	}

	raw, err := decompress(stored, c, int(rawLen))
	if err != nil {
		return nil, err
	}
	if !hash.VerifyCRC32C(raw, checksum) {
		return nil, ErrChecksumMismatch
	}
	return decodeEngine(raw)
}

// checkLengths rejects header lengths no Snapshot call could have written.
func checkLengths(c Compression, rawLen, storedLen uint64) error {
	if rawLen > maxSnapshotSize {
		return fmt.Errorf("%w: payload length %d too large", ErrBadSnapshot, rawLen)
	}
	switch c {
	case CompressionNone:
		if storedLen != rawLen {
			return fmt.Errorf("%w: stored length %d does not match payload length %d", ErrBadSnapshot, storedLen, rawLen)
		}
	case CompressionLZ4, CompressionZSTD:
		if storedLen >= rawLen {
			return fmt.Errorf("%w: compressed length %d not below payload length %d", ErrBadSnapshot, storedLen, rawLen)
		}
		if c == CompressionLZ4 && rawLen > storedLen*lz4MaxRatio {
			return fmt.Errorf("%w: payload length %d exceeds lz4 bound", ErrBadSnapshot, rawLen)
		}
	default:
		return fmt.Errorf("%w: unknown compression %d", ErrBadSnapshot, c)
	}
	return nil
}

func (e *Engine) encode() ([]byte, error) {
	var buf bytes.Buffer
	le := binary.LittleEndian

	e.Blocks.mu.RLock()
	_ = binary.Write(&buf, le, uint32(e.Blocks.pageSize))
	_ = binary.Write(&buf, le, uint64(e.Blocks.nextID))
	ids := make([]BlockID, 0, len(e.Blocks.blocks))
	for id := range e.Blocks.blocks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	_ = binary.Write(&buf, le, uint64(len(ids)))
	for _, id := range ids {
		data := e.Blocks.blocks[id]
		_ = binary.Write(&buf, le, uint64(id))
		_ = binary.Write(&buf, le, uint32(len(data)))
		buf.Write(data)
	}
	e.Blocks.mu.RUnlock()

	_ = binary.Write(&buf, le, uint64(e.Index.Len()))
	_ = e.Index.Scan(nil, func(key, value []byte) bool {
		_ = binary.Write(&buf, le, uint32(len(key)))
		buf.Write(key)
		_ = binary.Write(&buf, le, uint32(len(value)))
		buf.Write(value)
		return true
	})

	e.Large.mu.RLock()
	defer e.Large.mu.RUnlock()
	setIDs := make([]BlockID, 0, len(e.Large.sets))
	for id := range e.Large.sets {
		setIDs = append(setIDs, id)
	}
	slices.Sort(setIDs)
	_ = binary.Write(&buf, le, uint64(len(setIDs)))
	for _, id := range setIDs {
		data, err := e.Large.sets[id].ToBytes()
		if err != nil {
			return nil, err
		}
		_ = binary.Write(&buf, le, uint64(id))
		_ = binary.Write(&buf, le, uint32(len(data)))
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

type snapshotReader struct {
	data []byte
	off  int
	err  error
}

func (r *snapshotReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: truncated payload", ErrBadSnapshot)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *snapshotReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *snapshotReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func decodeEngine(raw []byte) (*Engine, error) {
	r := &snapshotReader{data: raw}

	pageSize := int(r.u32())
	e := NewEngine(func(o *Options) { o.PageSize = pageSize })
	e.Blocks.nextID = BlockID(r.u64())

	blockCount := r.u64()
	for i := uint64(0); i < blockCount && r.err == nil; i++ {
		id := BlockID(r.u64())
		data := r.take(int(r.u32()))
		e.Blocks.blocks[id] = bytes.Clone(data)
	}

	kvCount := r.u64()
	for i := uint64(0); i < kvCount && r.err == nil; i++ {
		key := r.take(int(r.u32()))
		value := r.take(int(r.u32()))
		if r.err == nil {
			_ = e.Index.Put(key, value)
		}
	}

	setCount := r.u64()
	for i := uint64(0); i < setCount && r.err == nil; i++ {
		id := BlockID(r.u64())
		data := r.take(int(r.u32()))
		if r.err != nil {
			break
		}
		bm := roaring64.New()
		if err := bm.UnmarshalBinary(data); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
		}
		e.Large.sets[id] = bm
	}

	if r.err != nil {
		return nil, r.err
	}
	return e, nil
}

// compress returns the stored payload and the algorithm actually used.
// Payloads that do not shrink are stored uncompressed.
func compress(raw []byte, c Compression) ([]byte, Compression, error) {
	switch c {
	case CompressionNone:
		return raw, CompressionNone, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, CompressionNone, err
		}
		if n == 0 || n >= len(raw) {
			return raw, CompressionNone, nil
		}
		return dst[:n], CompressionLZ4, nil
	case CompressionZSTD:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, CompressionNone, err
		}
		defer enc.Close()
		out := enc.EncodeAll(raw, nil)
		if len(out) >= len(raw) {
			return raw, CompressionNone, nil
		}
		return out, CompressionZSTD, nil
	default:
		return nil, CompressionNone, fmt.Errorf("storage: unknown compression %d", c)
	}
}

func decompress(stored []byte, c Compression, rawLen int) ([]byte, error) {
	switch c {
	case CompressionNone:
		return stored, nil
	case CompressionLZ4:
		dst := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, dst)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
		}
		if n != rawLen {
			return nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrBadSnapshot, n, rawLen)
		}
		return dst, nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(stored, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
		}
		if len(out) != rawLen {
			return nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrBadSnapshot, len(out), rawLen)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrBadSnapshot, c)
	}
}
