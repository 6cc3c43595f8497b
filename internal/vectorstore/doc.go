// Package vectorstore packs raw vectors into storage blocks.
//
// Small vectors share a block with other vectors of the same graph. The number
// of vectors per block is chosen per vector size to minimise the page rounding
// waste each vector pays. Vectors larger than a few pages get a block each.
//
// A vector is addressed by a Ref: a tagged integer whose low bit tells a
// single-vector block apart from a slot in a batch block.
//
// Vectors are immutable once written.
package vectorstore
