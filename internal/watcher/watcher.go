// Package watcher monitors per-tenant upload directories and indexes files
// dropped into them, so documents can be ingested by copying them into the
// tenant's directory instead of calling the upload endpoint.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long a file must stay quiet after its last write event
// before it is ingested. Copies arrive as a burst of writes; ingesting on
// the first event would read a partial file.
const settleDelay = 500 * time.Millisecond

// watchedExtensions are the file types picked up from watched directories.
var watchedExtensions = map[string]bool{
	".pdf": true, ".docx": true, ".txt": true, ".md": true,
	".markdown": true, ".csv": true, ".xlsx": true,
}

// Ingester indexes one staged file for a tenant. *ingestion.Pipeline
// satisfies it; tests inject a fake.
type Ingester interface {
	IngestFile(ctx context.Context, tenantID, path string) (int, error)
}

// Watcher watches one directory per tenant under a common root and ingests
// files as they settle.
type Watcher struct {
	ingest  Ingester
	rootDir string
	tenants []string
	log     *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New constructs a Watcher over rootDir/<tenantID> for each tenant,
// creating the directories if needed.
func New(ingest Ingester, rootDir string, tenantIDs []string, log *slog.Logger) (*Watcher, error) {
	if ingest == nil {
		return nil, fmt.Errorf("watcher: ingester is required")
	}
	if len(tenantIDs) == 0 {
		return nil, fmt.Errorf("watcher: at least one tenant is required")
	}
	if log == nil {
		log = slog.Default()
	}
	for _, id := range tenantIDs {
		if err := os.MkdirAll(filepath.Join(rootDir, id), 0o755); err != nil {
			return nil, fmt.Errorf("watcher: creating %s: %w", filepath.Join(rootDir, id), err)
		}
	}
	return &Watcher{
		ingest:  ingest,
		rootDir: rootDir,
		tenants: tenantIDs,
		log:     log,
		timers:  make(map[string]*time.Timer),
	}, nil
}

// Run blocks watching the tenant directories until the context is
// cancelled. Ingestion failures are logged, never fatal.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: starting fsnotify: %w", err)
	}
	defer fsw.Close()

	for _, id := range w.tenants {
		dir := filepath.Join(w.rootDir, id)
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watcher: watching %s: %w", dir, err)
		}
	}
	w.log.Info("watcher: watching upload directories",
		slog.String("root", w.rootDir),
		slog.Int("tenants", len(w.tenants)))

	for {
		select {
		case <-ctx.Done():
			w.cancelTimers()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !watchedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher: fs event error", slog.String("error", err.Error()))
		}
	}
}

// schedule (re)arms the settle timer for a path. The file is ingested once
// no further events arrive within settleDelay.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(settleDelay)
		return
	}
	w.timers[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.ingestSettled(ctx, path)
	})
}

// ingestSettled indexes one settled file for the tenant owning its directory.
func (w *Watcher) ingestSettled(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	tenantID := w.tenantFor(path)
	if tenantID == "" {
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}

	n, err := w.ingest.IngestFile(ctx, tenantID, path)
	if err != nil {
		w.log.Warn("watcher: ingest failed",
			slog.String("tenant_id", tenantID),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	w.log.Info("watcher: file indexed",
		slog.String("tenant_id", tenantID),
		slog.String("path", path),
		slog.Int("chunks", n))
}

// tenantFor maps a watched path back to the tenant owning its directory.
func (w *Watcher) tenantFor(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	for _, id := range w.tenants {
		if id == dir {
			return id
		}
	}
	return ""
}

// cancelTimers stops all pending settle timers.
func (w *Watcher) cancelTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
