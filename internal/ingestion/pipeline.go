package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/54b3r/tenantrag-go/internal/loader"
	"github.com/54b3r/tenantrag-go/internal/rag"
)

// embedBatchSize caps how many chunk texts go to the embedding backend in
// one request. Both OpenAI and Ollama accept well above this.
const embedBatchSize = 64

// chunkNamespace seeds deterministic chunk point IDs. Re-ingesting the same
// file for the same tenant overwrites its previous points instead of
// duplicating them.
var chunkNamespace = uuid.MustParse("7d3b7f6e-0d7c-4a41-9d4e-2f8b1c5a9e63")

// DocumentRecorder persists an ingested-document row for the admin surface.
// Recording is best-effort: a failure is logged, not fatal to ingestion.
type DocumentRecorder interface {
	RecordDocument(ctx context.Context, tenantID, fileName string, chunkCount int) error
}

// Pipeline runs load, split, tag, embed and upsert for source files.
type Pipeline struct {
	splitter *Splitter
	embedder rag.Embedder
	store    rag.VectorStore
	records  DocumentRecorder
	log      *slog.Logger
}

// NewPipeline wires a pipeline. Embedder and store are required; splitter
// defaults to the standard geometry when nil, and records may be nil when no
// document bookkeeping is wanted.
func NewPipeline(splitter *Splitter, embedder rag.Embedder, store rag.VectorStore, records DocumentRecorder, log *slog.Logger) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: vector store is required")
	}
	if splitter == nil {
		splitter = NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		splitter: splitter,
		embedder: embedder,
		store:    store,
		records:  records,
		log:      log,
	}, nil
}

// IngestFile processes one file for one tenant and returns the number of
// chunks written to the vector store. A file that yields no text is not an
// error; it is logged and reported as zero chunks.
func (p *Pipeline) IngestFile(ctx context.Context, tenantID, path string) (int, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("ingestion: tenant ID is required")
	}

	source := filepath.Base(path)
	segments, err := loader.Load(path)
	if err != nil {
		return 0, fmt.Errorf("ingestion: loading %s: %w", source, err)
	}

	chunks := p.buildChunks(tenantID, source, segments)
	if len(chunks) == 0 {
		p.log.Warn("ingestion: file produced no chunks",
			slog.String("tenant_id", tenantID),
			slog.String("source", source))
		return 0, nil
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("ingestion: embedding %s: %w", source, err)
		}
		if err := p.store.Upsert(ctx, batch, embeddings); err != nil {
			return 0, fmt.Errorf("ingestion: storing %s: %w", source, err)
		}
	}

	if p.records != nil {
		if err := p.records.RecordDocument(ctx, tenantID, source, len(chunks)); err != nil {
			p.log.Warn("ingestion: recording document failed",
				slog.String("tenant_id", tenantID),
				slog.String("source", source),
				slog.String("error", err.Error()))
		}
	}

	p.log.Info("ingestion: file ingested",
		slog.String("tenant_id", tenantID),
		slog.String("source", source),
		slog.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// FileResult reports the outcome of one file in a batch ingest.
type FileResult struct {
	Path   string
	Chunks int
	Err    error
}

// IngestFiles processes each file independently. One file failing does not
// stop the rest; per-file outcomes come back in order.
func (p *Pipeline) IngestFiles(ctx context.Context, tenantID string, paths []string) []FileResult {
	results := make([]FileResult, 0, len(paths))
	for _, path := range paths {
		n, err := p.IngestFile(ctx, tenantID, path)
		if err != nil {
			p.log.Warn("ingestion: file failed",
				slog.String("tenant_id", tenantID),
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		results = append(results, FileResult{Path: path, Chunks: n, Err: err})
	}
	return results
}

// buildChunks splits segments and tags every chunk with its tenant and
// provenance. Chunk IDs are derived from tenant, source and ordinal so the
// same content always maps to the same vector point.
func (p *Pipeline) buildChunks(tenantID, source string, segments []loader.Segment) []rag.Chunk {
	var chunks []rag.Chunk
	ordinal := 0
	for _, seg := range segments {
		for _, text := range p.splitter.Split(seg.Text) {
			id := uuid.NewSHA1(chunkNamespace, []byte(tenantID+"/"+source+"#"+strconv.Itoa(ordinal)))
			chunks = append(chunks, rag.Chunk{
				ID:       id.String(),
				Text:     text,
				TenantID: tenantID,
				Source:   source,
				Page:     seg.Page,
			})
			ordinal++
		}
	}
	return chunks
}
