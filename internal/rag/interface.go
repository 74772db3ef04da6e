// Package rag defines the retrieval contract for the assistant: the chunk
// model, the versioned vector payload schema, and the interfaces for vector
// storage, embedding, and tenant-scoped retrieval. Concrete implementations
// (Qdrant, OpenAI, Ollama) satisfy these interfaces so the chat layer never
// depends on a specific backend.
package rag

import (
	"context"
)

// Chunk is a bounded text window derived from a source document — the unit
// of embedding, storage, and retrieval. Every chunk is owned by exactly one
// tenant and carries that ownership in its payload from the moment it is
// created; an untagged chunk must never reach the vector store.
type Chunk struct {
	// ID is the stable unique identifier for this chunk (a UUID).
	ID string

	// Text is the raw chunk content.
	Text string

	// TenantID identifies the owning tenant. Mandatory.
	TenantID string

	// Source is the original filename the chunk was extracted from.
	Source string

	// Page is the 1-based source page or row number. Zero means the source
	// format carries no page information (e.g. plain text).
	Page int

	// Score is the similarity score assigned during retrieval.
	// Zero value means the score was not computed.
	Score float32
}

// PayloadVersion is the current chunk payload schema version. Payloads read
// back from the vector store with a different version are rejected at the
// store boundary rather than partially interpreted.
const PayloadVersion = 1

// VectorStore is the interface for persisting and searching chunk embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// EnsureCollection creates the backing collection if it does not exist.
	// Idempotent: an existing collection is left untouched, never recreated.
	EnsureCollection(ctx context.Context) error

	// Upsert stores or updates a batch of chunks with their pre-computed
	// embeddings. embeddings[i] is the vector for chunks[i]. Overwrites on
	// ID collision, inserts otherwise.
	Upsert(ctx context.Context, chunks []Chunk, embeddings [][]float32) error

	// Search returns the topK nearest chunks by cosine similarity whose
	// payload tenant tag equals tenantID. The tenant filter is mandatory —
	// there is no unfiltered entry point.
	Search(ctx context.Context, queryEmbedding []float32, tenantID string, topK int) ([]Chunk, error)

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface the chat service uses to fetch
// tenant-scoped context for a question. It combines query embedding and
// filtered vector search.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the topK most relevant chunks owned by tenantID.
	// An empty result is valid and means no matching content, not an error.
	Retrieve(ctx context.Context, tenantID, query string, topK int) ([]Chunk, error)
}
