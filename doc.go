// Package vecidx provides a persistent HNSW vector index embedded in a
// block based storage engine.
//
// Graphs are created by name with a fixed vector byte size, graph degree M,
// construction beam width and similarity metric. Documents are registered in
// batches: identical vectors are deduplicated by content hash and share one
// graph node whose posting list records every document mapped to it.
//
// # Quick Start
//
//	engine := storage.NewEngine()
//	idx := vecidx.New(engine, vecidx.WithLogger(vecidx.NewTextLogger(slog.LevelInfo)))
//
//	_ = idx.CreateGraph(ctx, "docs", 3*4, 16, 100, distance.MetricCosineFloat)
//
//	reg, _ := idx.RegistrationFor(ctx, "docs")
//	_, _ = reg.Register(1, distance.EncodeFloat32([]float32{1, 0, 0}))
//	_, _ = reg.Commit(ctx)
//
//	search, _ := idx.ApproximateNearest(ctx, "docs", 10, query, 0.5)
//	for r, err := range search.All() {
//	    ...
//	}
//
// # Metrics
//
// Vectors are raw bytes. Use distance.EncodeFloat32 for cosine,
// distance.QuantizeInt8 for cosine-int8 and distance.PackBits or
// distance.BinarizeFloat32 for hamming.
//
// # Persistence
//
// All state lives in the Backend. storage.Engine snapshots can be written
// with optional LZ4 or ZSTD compression and restored in another process.
package vecidx
