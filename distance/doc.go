// Package distance provides the similarity metrics used by the vector index.
//
// Vectors are handed to the index as raw bytes. Each metric knows how to read
// its own byte layout:
//
//   - MetricCosineFloat: little-endian float32 components
//   - MetricCosineInt8: signed int8 components followed by a little-endian
//     float32 scale factor
//   - MetricHamming: bit-packed binary vector
//
// # Distances and scores
//
// Every Similarity maps a pair of vectors to a non-negative distance where 0
// means identical, and converts distances to scores with a monotonically
// decreasing function. MinSimilarityToMaxDistance is the inverse of
// DistanceToScore and turns a caller supplied similarity floor into a
// distance cutoff.
//
// Identical vectors yield a distance of exactly 0 and a score of exactly 1.
//
// # Usage
//
//	sim, _ := distance.New(distance.MetricCosineFloat, 3*4)
//	d := sim.Distance(distance.EncodeFloat32(a), distance.EncodeFloat32(b))
//	score := sim.DistanceToScore(d)
package distance
