// Package storage defines the host storage collaborators the vector index is
// written against, together with in-memory reference implementations.
//
// A host storage engine supplies three things:
//
//   - BlockStore: variable sized blocks addressed by opaque 64-bit ids
//   - KVIndex: a persistent ordered key/value index
//   - LargeSets: an external ordered-set structure for heavily duplicated
//     posting lists
//
// Engine bundles the in-memory implementations and can be snapshotted to and
// restored from any io.Writer / io.Reader, optionally LZ4 or ZSTD compressed.
//
// Transactions, MVCC snapshots and crash recovery are the host's concern. The
// in-memory implementations are safe for concurrent use but provide no
// isolation between writers.
package storage
