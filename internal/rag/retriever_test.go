package rag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

// fakeEmbedder returns a fixed vector for every input text.
type fakeEmbedder struct {
	// err is returned from Embed when non-nil.
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

// fakeStore returns a canned result set and records the search arguments.
type fakeStore struct {
	results    []Chunk
	err        error
	gotTenant  string
	gotTopK    int
	searchDone bool
}

func (f *fakeStore) EnsureCollection(context.Context) error { return nil }
func (f *fakeStore) Upsert(context.Context, []Chunk, [][]float32) error {
	return nil
}
func (f *fakeStore) Search(_ context.Context, _ []float32, tenantID string, topK int) ([]Chunk, error) {
	f.gotTenant = tenantID
	f.gotTopK = topK
	f.searchDone = true
	return f.results, f.err
}
func (f *fakeStore) Close() error { return nil }

// discardLogger suppresses the retriever's warn output in tests.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Test_Retrieve_PassesTenantFilter(t *testing.T) {
	t.Parallel()

	store := &fakeStore{results: []Chunk{{TenantID: "tenantA", Text: "hello", Source: "a.pdf"}}}
	r, err := NewTenantRetriever(&fakeEmbedder{}, store, 0, discardLogger())
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}

	got, err := r.Retrieve(context.Background(), "tenantA", "what is hello?", 0)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if store.gotTenant != "tenantA" {
		t.Errorf("want tenant filter tenantA, got %q", store.gotTenant)
	}
	if store.gotTopK != DefaultTopK {
		t.Errorf("want default topK %d, got %d", DefaultTopK, store.gotTopK)
	}
	if len(got) != 1 || got[0].Text != "hello" {
		t.Errorf("unexpected results: %+v", got)
	}
}

func Test_Retrieve_DropsCrossTenantResults(t *testing.T) {
	t.Parallel()

	store := &fakeStore{results: []Chunk{
		{TenantID: "tenantA", Text: "mine", Source: "a.pdf"},
		{TenantID: "tenantB", Text: "leaked", Source: "b.pdf"},
		{TenantID: "tenantA", Text: "also mine", Source: "a.pdf"},
	}}
	r, err := NewTenantRetriever(&fakeEmbedder{}, store, 5, discardLogger())
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}

	got, err := r.Retrieve(context.Background(), "tenantA", "q", 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 results after post-filter, got %d", len(got))
	}
	for _, c := range got {
		if c.TenantID != "tenantA" {
			t.Errorf("cross-tenant chunk survived post-filter: %+v", c)
		}
	}
}

func Test_Retrieve_EmptyResultIsNotAnError(t *testing.T) {
	t.Parallel()

	r, err := NewTenantRetriever(&fakeEmbedder{}, &fakeStore{}, 5, discardLogger())
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}

	got, err := r.Retrieve(context.Background(), "tenantA", "anything", 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("want empty result, got %d", len(got))
	}
}

func Test_Retrieve_EmbedderFailurePropagates(t *testing.T) {
	t.Parallel()

	r, err := NewTenantRetriever(&fakeEmbedder{err: fmt.Errorf("rate limited")}, &fakeStore{}, 5, discardLogger())
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}

	if _, err := r.Retrieve(context.Background(), "tenantA", "q", 5); err == nil {
		t.Fatal("want error when embedder fails, got nil")
	}
}

func Test_Retrieve_RequiresTenant(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	r, err := NewTenantRetriever(&fakeEmbedder{}, store, 5, discardLogger())
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}

	if _, err := r.Retrieve(context.Background(), "", "q", 5); err == nil {
		t.Fatal("want error for empty tenant id, got nil")
	}
	if store.searchDone {
		t.Error("search must not run without a tenant id")
	}
}
