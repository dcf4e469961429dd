// Package rag implements retrieval-augmented context: chunking, embedding,
// a sqlite-vec vector store, and semantic search over project documentation.
//
// Invariants:
// - Chunk ids derive deterministically from source identifier and offset.
// - The metadata side index is idempotent per source; the vector store is
//   not pruned and may accumulate stale chunk ids.
// - Search on an empty store returns an empty result, never an error.
package rag
