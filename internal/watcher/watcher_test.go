package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recordingIngester struct {
	mu    sync.Mutex
	calls []struct{ tenantID, path string }
}

func (r *recordingIngester) IngestFile(_ context.Context, tenantID, path string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, struct{ tenantID, path string }{tenantID, path})
	return 1, nil
}

func (r *recordingIngester) snapshot() []struct{ tenantID, path string } {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]struct{ tenantID, path string }(nil), r.calls...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewCreatesTenantDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, err := New(&recordingIngester{}, root, []string{"tenantA", "tenantB"}, quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, id := range []string{"tenantA", "tenantB"} {
		if _, err := os.Stat(filepath.Join(root, id)); err != nil {
			t.Errorf("tenant dir %s not created: %v", id, err)
		}
	}
}

func TestNewRequiresTenants(t *testing.T) {
	t.Parallel()

	if _, err := New(&recordingIngester{}, t.TempDir(), nil, quietLogger()); err == nil {
		t.Fatal("expected error for empty tenant list")
	}
}

func TestWatcherIngestsDroppedFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ing := &recordingIngester{}
	w, err := New(ing, root, []string{"tenantA"}, quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register before dropping the file.
	time.Sleep(200 * time.Millisecond)
	path := filepath.Join(root, "tenantA", "note.txt")
	if err := os.WriteFile(path, []byte("dropped content"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		calls := ing.snapshot()
		if len(calls) > 0 {
			if calls[0].tenantID != "tenantA" {
				t.Errorf("ingested for tenant %q, want tenantA", calls[0].tenantID)
			}
			if calls[0].path != path {
				t.Errorf("ingested path %q, want %q", calls[0].path, path)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("file was never ingested")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned error: %v", err)
	}
}

func TestWatcherIgnoresUnsupportedExtensions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ing := &recordingIngester{}
	w, err := New(ing, root, []string{"tenantA"}, quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	path := filepath.Join(root, "tenantA", "archive.zip")
	if err := os.WriteFile(path, []byte("binary"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)
	if calls := ing.snapshot(); len(calls) != 0 {
		t.Errorf("unsupported file was ingested: %+v", calls)
	}
}
