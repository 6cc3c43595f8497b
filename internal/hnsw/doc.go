// Package hnsw implements a persistent Hierarchical Navigable Small World
// graph on top of the host storage collaborators.
//
// A SearchState is the transaction scoped working set of one graph: it caches
// decoded nodes, runs the layer and cross level searches and the diversity
// pruning heuristic. A Registration batches document insertions and removals
// and wires new nodes into the graph on Commit. ExactNearest and
// ApproximateNearest return a NearestSearch that streams document ids ranked
// by similarity.
//
// None of the types in this package are safe for concurrent use.
package hnsw
