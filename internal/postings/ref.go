package postings

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecidx/internal/tagged"
)

// Kind is the representation of a posting list.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindSingle
	KindSmall
	KindLarge
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindSingle:
		return "single"
	case KindSmall:
		return "small"
	case KindLarge:
		return "large"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

const idShift = 2

var refLayout = tagged.Layout{Bits: idShift}

// MaxDocumentID is the largest document id the index accepts.
const MaxDocumentID = ^uint64(0) >> idShift

// ErrReservedBits is returned for document ids that use the bits reserved
// for multiplexing.
var ErrReservedBits = errors.New("postings: document id uses reserved bits")

// Ref addresses a posting list. The zero Ref is the empty list.
type Ref uint64

// Empty is the posting list without documents.
const Empty Ref = 0

// Kind returns the representation of r.
func (r Ref) Kind() Kind {
	return Kind(refLayout.Tag(uint64(r)))
}

func (r Ref) addr() uint64 {
	return refLayout.Addr(uint64(r))
}

func packRef(k Kind, addr uint64) (Ref, error) {
	w, err := refLayout.Pack(uint8(k), addr)
	if err != nil {
		return Empty, err
	}
	return Ref(w), nil
}

// InternalID shifts a caller supplied document id into index form.
func InternalID(docID uint64) (uint64, error) {
	if docID > MaxDocumentID {
		return 0, fmt.Errorf("%w: %d", ErrReservedBits, docID)
	}
	return docID << idShift, nil
}

// ExternalID converts an index form id back to the caller's document id.
func ExternalID(internal uint64) uint64 {
	return internal >> idShift
}

const removeFlag = 1

// Op is a pending change to a posting list: an index form document id,
// optionally carrying the removal flag.
type Op uint64

// AddOp records that internal was added.
func AddOp(internal uint64) Op { return Op(internal) }

// RemoveOp records that internal was removed.
func RemoveOp(internal uint64) Op { return Op(internal | removeFlag) }

// Remove reports whether the op removes its document.
func (o Op) Remove() bool { return o&removeFlag != 0 }

// ID returns the index form document id of the op.
func (o Op) ID() uint64 { return uint64(o) &^ (1<<idShift - 1) }
