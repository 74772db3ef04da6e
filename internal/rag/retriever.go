package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultTopK is the number of results retrieved when the caller passes 0.
// Deliberately high so noisy, large-document corpora still surface the
// relevant chunks.
const DefaultTopK = 15

// TenantRetriever implements Retriever by combining an Embedder and a
// VectorStore. It embeds the question at retrieval time, issues a
// tenant-filtered search, and then re-checks every returned chunk's tenant
// tag against the request. The re-check is defence in depth: a single point
// of filter failure must never leak cross-tenant content.
type TenantRetriever struct {
	// embedder converts question text to a dense vector.
	embedder Embedder

	// store performs the tenant-filtered vector similarity search.
	store VectorStore

	// defaultTopK is the result count used when the caller passes 0.
	defaultTopK int

	// log records dropped cross-tenant results.
	log *slog.Logger
}

// NewTenantRetriever constructs a TenantRetriever from the given Embedder and
// VectorStore. defaultTopK sets the fallback result count for Retrieve calls
// with topK=0; pass 0 to use DefaultTopK.
func NewTenantRetriever(embedder Embedder, store VectorStore, defaultTopK int, log *slog.Logger) (*TenantRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	if log == nil {
		log = slog.Default()
	}
	return &TenantRetriever{
		embedder:    embedder,
		store:       store,
		defaultTopK: defaultTopK,
		log:         log,
	}, nil
}

// Retrieve embeds the question and returns the topK most relevant chunks
// owned by tenantID. Chunks whose tenant tag does not match the request are
// discarded and logged before they can reach the caller. An empty result is
// a valid outcome, not an error.
func (r *TenantRetriever) Retrieve(ctx context.Context, tenantID, query string, topK int) ([]Chunk, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("rag: retrieve requires a tenant id")
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}

	chunks, err := r.store.Search(ctx, embeddings[0], tenantID, topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	kept := chunks[:0]
	for _, c := range chunks {
		if c.TenantID != tenantID {
			r.log.Warn("rag: dropping cross-tenant search result",
				slog.String("requested_tenant", tenantID),
				slog.String("result_tenant", c.TenantID),
				slog.String("chunk_id", c.ID),
				slog.String("source", c.Source),
			)
			continue
		}
		kept = append(kept, c)
	}

	return kept, nil
}
