package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/54b3r/tenantrag-go/internal/config"
	"github.com/54b3r/tenantrag-go/internal/embedder"
	"github.com/54b3r/tenantrag-go/internal/ingestion"
	"github.com/54b3r/tenantrag-go/internal/rag"
	"github.com/54b3r/tenantrag-go/internal/store"
)

// openVectorStore connects to Qdrant from QDRANT_* env vars, sizing the
// collection for the configured embedding backend.
func openVectorStore(ctx context.Context, log *slog.Logger) (*rag.QdrantStore, error) {
	backend := embedder.Backend()
	vectorSize := uint64(embedder.DefaultDimensions(backend)) //nolint:gosec // dimensions are bounded

	qdrantStore, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:       getEnvInt("QDRANT_PORT", 6334),
		Collection: getEnvOrDefault("QDRANT_COLLECTION", "tenantrag-docs"),
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	log.Info("qdrant store ready",
		slog.String("host", getEnvOrDefault("QDRANT_HOST", "localhost")),
		slog.String("collection", getEnvOrDefault("QDRANT_COLLECTION", "tenantrag-docs")))
	return qdrantStore, nil
}

// openDatabase opens the relational store at TENANTRAG_DB (or the default
// path) and seeds the configured tenant registry.
func openDatabase(ctx context.Context, log *slog.Logger) (*store.Store, error) {
	dbPath := os.Getenv("TENANTRAG_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolving database path: %w", err)
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tenants, err := config.Tenants()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.SeedTenants(ctx, tenants); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("database ready",
		slog.String("path", dbPath),
		slog.Int("tenants", len(tenants)))
	return db, nil
}

// newSplitterFromEnv builds the chunker with CHUNK_SIZE/CHUNK_OVERLAP
// overrides applied.
func newSplitterFromEnv() *ingestion.Splitter {
	return ingestion.NewSplitter(
		getEnvInt("CHUNK_SIZE", ingestion.DefaultChunkSize),
		getEnvInt("CHUNK_OVERLAP", ingestion.DefaultChunkOverlap),
	)
}

// retrievalTopK resolves the per-question retrieval depth.
func retrievalTopK() int {
	return getEnvInt("RETRIEVAL_TOP_K", rag.DefaultTopK)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
