// Package graph defines the persisted records of an HNSW graph: the fixed
// size Options header, the variable length Node encoding and the keys under
// which both are registered in the host's ordered index.
package graph
