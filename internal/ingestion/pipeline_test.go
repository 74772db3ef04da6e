package ingestion

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/tenantrag-go/internal/rag"
)

type captureStore struct {
	chunks     []rag.Chunk
	embeddings [][]float32
}

func (s *captureStore) EnsureCollection(ctx context.Context) error { return nil }

func (s *captureStore) Upsert(ctx context.Context, chunks []rag.Chunk, embeddings [][]float32) error {
	s.chunks = append(s.chunks, chunks...)
	s.embeddings = append(s.embeddings, embeddings...)
	return nil
}

func (s *captureStore) Search(ctx context.Context, q []float32, tenantID string, topK int) ([]rag.Chunk, error) {
	return nil, nil
}

func (s *captureStore) Close() error { return nil }

type stubEmbedder struct{ calls int }

func (e *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i]))}
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestFileTagsEveryChunkWithTenant(t *testing.T) {
	t.Parallel()

	store := &captureStore{}
	p, err := NewPipeline(NewSplitter(100, 20), &stubEmbedder{}, store, nil, testLogger())
	require.NoError(t, err)

	path := writeTestFile(t, "doc.txt", "first paragraph of the document.\n\nsecond paragraph of the document.")
	n, err := p.IngestFile(context.Background(), "tenantA", path)
	require.NoError(t, err)
	require.Equal(t, len(store.chunks), n)
	require.NotEmpty(t, store.chunks)

	for _, c := range store.chunks {
		assert.Equal(t, "tenantA", c.TenantID)
		assert.Equal(t, "doc.txt", c.Source)
		assert.NotEmpty(t, c.ID)
		assert.NotEmpty(t, c.Text)
	}
	assert.Len(t, store.embeddings, len(store.chunks))
}

func TestIngestFileDeterministicChunkIDs(t *testing.T) {
	t.Parallel()

	content := "alpha beta gamma delta.\n\nepsilon zeta eta theta."

	run := func() []string {
		store := &captureStore{}
		p, err := NewPipeline(NewSplitter(100, 20), &stubEmbedder{}, store, nil, testLogger())
		require.NoError(t, err)
		path := writeTestFile(t, "same.txt", content)
		_, err = p.IngestFile(context.Background(), "tenantA", path)
		require.NoError(t, err)
		ids := make([]string, len(store.chunks))
		for i, c := range store.chunks {
			ids[i] = c.ID
		}
		return ids
	}

	assert.Equal(t, run(), run(), "re-ingesting identical content must produce identical point IDs")
}

func TestIngestFileEmptyDocumentIsNotAnError(t *testing.T) {
	t.Parallel()

	store := &captureStore{}
	p, err := NewPipeline(nil, &stubEmbedder{}, store, nil, testLogger())
	require.NoError(t, err)

	path := writeTestFile(t, "empty.txt", "   \n")
	n, err := p.IngestFile(context.Background(), "tenantA", path)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.chunks)
}

func TestIngestFileRequiresTenant(t *testing.T) {
	t.Parallel()

	p, err := NewPipeline(nil, &stubEmbedder{}, &captureStore{}, nil, testLogger())
	require.NoError(t, err)

	path := writeTestFile(t, "doc.txt", "content")
	_, err = p.IngestFile(context.Background(), "", path)
	assert.Error(t, err)
}

func TestIngestFilesIsolatesFailures(t *testing.T) {
	t.Parallel()

	store := &captureStore{}
	p, err := NewPipeline(nil, &stubEmbedder{}, store, nil, testLogger())
	require.NoError(t, err)

	good := writeTestFile(t, "good.txt", "usable content for the index.")
	bad := writeTestFile(t, "bad.zip", "unsupported")

	results := p.IngestFiles(context.Background(), "tenantA", []string{bad, good})
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Positive(t, results[1].Chunks)
	assert.NotEmpty(t, store.chunks, "good file must still be ingested after a failure")
}
