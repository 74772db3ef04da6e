package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the shared collection holding all tenants' chunks.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Logger receives payload-validation warnings. If nil, slog.Default is used.
	Logger *slog.Logger
}

// QdrantStore implements VectorStore backed by a Qdrant instance. All tenants
// share one collection; isolation is enforced by a mandatory tenant_id
// equality filter on every search plus the retriever's post-check.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig

	// log receives warnings for malformed payloads dropped at read time.
	log *slog.Logger
}

// NewQdrantStore creates a new QdrantStore, ensuring the shared collection
// exists (creating it if necessary), and returns a ready-to-use VectorStore.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name must not be empty")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	clientCfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg, log: cfg.Logger}
	if err := store.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// Client exposes the underlying gRPC client for health probes.
func (s *QdrantStore) Client() *qdrant.Client { return s.client }

// EnsureCollection creates the collection only if it is absent. An existing
// collection is never recreated or wiped — repeated calls leave stored
// vectors untouched.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// Upsert stores or updates a batch of chunks with their embeddings.
// embeddings must be parallel to chunks. Chunks missing a tenant tag are
// refused outright — an untagged point in the shared collection would be
// invisible to every tenant filter and unreachable forever.
func (s *QdrantStore) Upsert(ctx context.Context, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("qdrant: got %d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, c := range chunks {
		if c.TenantID == "" {
			return fmt.Errorf("qdrant: chunk %q has no tenant tag", c.ID)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(c.ID),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(encodePayload(c)),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return nil
}

// Search performs a cosine similarity search constrained to tenantID's chunks.
// Results whose payload fails schema validation are dropped with a warning.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, tenantID string, topK int) ([]Chunk, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("qdrant: search requires a tenant id")
	}

	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("tenant_id", tenantID),
			},
		},
		Limit:       &limit,
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	chunks := make([]Chunk, 0, len(results))
	for _, r := range results {
		c, err := decodePayload(r.Payload)
		if err != nil {
			s.log.Warn("qdrant: dropping result with malformed payload",
				slog.String("collection", s.cfg.Collection),
				slog.String("point_id", r.Id.GetUuid()),
				slog.Any("error", err),
			)
			continue
		}
		c.ID = r.Id.GetUuid()
		c.Score = r.Score
		chunks = append(chunks, c)
	}

	return chunks, nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// encodePayload renders a chunk as the versioned payload map stored alongside
// its vector. This is the single payload shape the system reads and writes.
func encodePayload(c Chunk) map[string]any {
	return map[string]any{
		"schema_version": int64(PayloadVersion),
		"tenant_id":      c.TenantID,
		"source":         c.Source,
		"page":           int64(c.Page),
		"text":           c.Text,
	}
}

// decodePayload validates a stored payload against the versioned schema and
// converts it back into a Chunk. Payloads from an unknown schema version or
// missing the mandatory tenant/text fields are rejected, not guessed at.
func decodePayload(p map[string]*qdrant.Value) (Chunk, error) {
	if p == nil {
		return Chunk{}, fmt.Errorf("payload is empty")
	}

	v, ok := p["schema_version"]
	if !ok {
		return Chunk{}, fmt.Errorf("payload has no schema_version")
	}
	if got := v.GetIntegerValue(); got != PayloadVersion {
		return Chunk{}, fmt.Errorf("unsupported payload schema version %d", got)
	}

	c := Chunk{
		TenantID: p["tenant_id"].GetStringValue(),
		Source:   p["source"].GetStringValue(),
		Text:     p["text"].GetStringValue(),
	}
	if pg, ok := p["page"]; ok {
		c.Page = int(pg.GetIntegerValue())
	}

	if c.TenantID == "" {
		return Chunk{}, fmt.Errorf("payload has no tenant_id")
	}
	if c.Text == "" {
		return Chunk{}, fmt.Errorf("payload has no text")
	}

	return c, nil
}
