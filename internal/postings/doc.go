// Package postings stores the set of documents mapped to one vector.
//
// A posting list is addressed by a Ref whose two low bits select the
// representation:
//
//   - Empty: no live documents (a tombstoned vector)
//   - Single: the only document id is inlined in the remaining bits
//   - Small: a block holding up to SmallCapacity delta encoded ids
//   - Large: an external ordered set for heavily duplicated vectors
//
// Document ids are kept shifted left by two bits while inside the index so
// the low bits can carry the representation tag or the removal flag of an Op.
// Changes are accumulated as Ops and applied in one Merge at commit time.
package postings
