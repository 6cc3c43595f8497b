// Package tagged packs a small discriminant and an address into one uint64.
//
// The low Bits of a Word hold the tag, the remaining high bits hold the
// address. Addresses are therefore limited to 64-Bits bits, and a Word with
// tag zero is always Bits-aligned.
package tagged

import "fmt"

// Layout describes how many low-order bits are reserved for the tag.
type Layout struct {
	Bits uint
}

// MaxAddr returns the largest address the layout can hold.
func (l Layout) MaxAddr() uint64 {
	return ^uint64(0) >> l.Bits
}

func (l Layout) tagMask() uint64 {
	return (1 << l.Bits) - 1
}

// Pack combines tag and addr. It fails when either does not fit.
func (l Layout) Pack(tag uint8, addr uint64) (uint64, error) {
	if uint64(tag) > l.tagMask() {
		return 0, fmt.Errorf("tagged: tag %d exceeds %d bits", tag, l.Bits)
	}
	if addr > l.MaxAddr() {
		return 0, fmt.Errorf("tagged: address %d exceeds %d bits", addr, 64-l.Bits)
	}
	return addr<<l.Bits | uint64(tag), nil
}

// Tag returns the discriminant stored in w.
func (l Layout) Tag(w uint64) uint8 {
	return uint8(w & l.tagMask())
}

// Addr returns the address stored in w.
func (l Layout) Addr(w uint64) uint64 {
	return w >> l.Bits
}

// Aligned reports whether w carries no tag bits.
func (l Layout) Aligned(w uint64) bool {
	return w&l.tagMask() == 0
}
