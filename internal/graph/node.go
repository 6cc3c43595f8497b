package graph

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/vecidx/internal/postings"
	"github.com/hupe1980/vecidx/internal/vectorstore"
)

// EntryPoint is the permanent node every search starts from.
const EntryPoint uint64 = 1

// ErrCorruptNode is returned when a node record cannot be decoded.
var ErrCorruptNode = errors.New("graph: corrupt node record")

// Node is one vertex of the graph. Levels[l] holds the neighbor ids on level
// l; level 0 always exists.
type Node struct {
	ID       uint64
	Postings postings.Ref
	Vector   vectorstore.Ref
	Levels   [][]uint64
}

// NewNode returns a node with an empty level 0.
func NewNode(id uint64, vector vectorstore.Ref) *Node {
	return &Node{
		ID:     id,
		Vector: vector,
		Levels: [][]uint64{nil},
	}
}

// TopLevel returns the highest level the node participates in.
func (n *Node) TopLevel() int {
	return len(n.Levels) - 1
}

// Neighbors returns the neighbor ids on level, or nil above the node's top.
func (n *Node) Neighbors(level int) []uint64 {
	if level >= len(n.Levels) {
		return nil
	}
	return n.Levels[level]
}

// EnsureLevels grows the node so that it participates in levels 0..top.
func (n *Node) EnsureLevels(top int) {
	for len(n.Levels) <= top {
		n.Levels = append(n.Levels, nil)
	}
}

// Normalize sorts every neighbor list, drops duplicates and self references.
func (n *Node) Normalize() {
	for l, ids := range n.Levels {
		ids = slices.DeleteFunc(ids, func(id uint64) bool { return id == n.ID })
		slices.Sort(ids)
		n.Levels[l] = slices.Compact(ids)
	}
}

// Encode normalizes n and serializes it:
//
//	uvarint postings | uvarint vector | uvarint levels |
//	per level: uvarint count, uvarint deltas of the sorted ids
func Encode(n *Node) []byte {
	n.Normalize()

	size := 3 * binary.MaxVarintLen64
	for _, ids := range n.Levels {
		size += binary.MaxVarintLen64 * (len(ids) + 1)
	}
	buf := make([]byte, 0, size)
	buf = binary.AppendUvarint(buf, uint64(n.Postings))
	buf = binary.AppendUvarint(buf, uint64(n.Vector))
	buf = binary.AppendUvarint(buf, uint64(len(n.Levels)))
	for _, ids := range n.Levels {
		buf = binary.AppendUvarint(buf, uint64(len(ids)))
		var prev uint64
		for _, id := range ids {
			buf = binary.AppendUvarint(buf, id-prev)
			prev = id
		}
	}
	return buf
}

// Reader gives access to an encoded node. The posting list and vector refs
// are decoded eagerly, neighbor lists only by LoadInto.
type Reader struct {
	postings postings.Ref
	vector   vectorstore.Ref
	levels   int
	rest     []byte
}

// Decode parses the fixed part of an encoded node.
func Decode(data []byte) (*Reader, error) {
	var vals [3]uint64
	off := 0
	for i := range vals {
		v, n := binary.Uvarint(data[off:])
		if n <= 0 {
			return nil, fmt.Errorf("%w: truncated header", ErrCorruptNode)
		}
		vals[i] = v
		off += n
	}
	if vals[2] == 0 || vals[2] > 64 {
		return nil, fmt.Errorf("%w: %d levels", ErrCorruptNode, vals[2])
	}
	return &Reader{
		postings: postings.Ref(vals[0]),
		vector:   vectorstore.Ref(vals[1]),
		levels:   int(vals[2]),
		rest:     data[off:],
	}, nil
}

// Postings returns the posting list reference.
func (r *Reader) Postings() postings.Ref { return r.postings }

// Vector returns the vector reference.
func (r *Reader) Vector() vectorstore.Ref { return r.vector }

// LevelCount returns the number of levels stored.
func (r *Reader) LevelCount() int { return r.levels }

// LoadInto fills n with the decoded record. n.ID is left untouched.
func (r *Reader) LoadInto(n *Node) error {
	n.Postings = r.postings
	n.Vector = r.vector
	n.Levels = make([][]uint64, r.levels)

	data := r.rest
	for l := range n.Levels {
		count, m := binary.Uvarint(data)
		if m <= 0 || count > uint64(len(data)) {
			return fmt.Errorf("%w: level %d", ErrCorruptNode, l)
		}
		data = data[m:]

		ids := make([]uint64, count)
		var prev uint64
		for i := range ids {
			delta, m := binary.Uvarint(data)
			if m <= 0 {
				return fmt.Errorf("%w: level %d", ErrCorruptNode, l)
			}
			data = data[m:]
			prev += delta
			ids[i] = prev
		}
		n.Levels[l] = ids
	}
	return nil
}
