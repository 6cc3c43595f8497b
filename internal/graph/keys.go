package graph

import (
	"encoding/binary"

	"github.com/hupe1980/vecidx/storage"
)

// Key prefixes inside a graph namespace.
const (
	kindNode   byte = 'n'
	kindHash   byte = 'h'
	kindVector byte = 'v'
)

// catalogPrefix namespaces graph name -> header block entries.
const catalogPrefix = "catalog/"

// CatalogPrefix returns the prefix shared by all catalog keys.
func CatalogPrefix() []byte {
	return []byte(catalogPrefix)
}

// CatalogKey returns the key mapping a graph name to its header block.
func CatalogKey(name string) []byte {
	return append([]byte(catalogPrefix), name...)
}

// GraphName extracts the graph name from a catalog key.
func GraphName(key []byte) string {
	return string(key[len(catalogPrefix):])
}

func graphKey(root storage.BlockID, kind byte, extra int) []byte {
	key := make([]byte, 9, 9+extra)
	binary.BigEndian.PutUint64(key, uint64(root))
	key[8] = kind
	return key
}

// NodeKey maps a node id to the block holding its record.
func NodeKey(root storage.BlockID, id uint64) []byte {
	return binary.BigEndian.AppendUint64(graphKey(root, kindNode, 8), id)
}

// HashKey maps a content hash to its vector reference.
func HashKey(root storage.BlockID, hash []byte) []byte {
	return append(graphKey(root, kindHash, len(hash)), hash...)
}

// VectorKey maps a vector reference to the node holding it.
func VectorKey(root storage.BlockID, ref uint64) []byte {
	return binary.BigEndian.AppendUint64(graphKey(root, kindVector, 8), ref)
}

// PrefixOf returns the prefix shared by all keys of a graph.
func PrefixOf(root storage.BlockID) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(root))
}

// EncodeUint64 encodes an index value.
func EncodeUint64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

// DecodeUint64 decodes an index value written by EncodeUint64.
func DecodeUint64(b []byte) (uint64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}
