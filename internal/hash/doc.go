// Package hash computes the CRC32-Castagnoli checksums that guard graph
// headers and engine snapshots.
package hash
