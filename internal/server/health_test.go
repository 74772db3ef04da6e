package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// fakePinger implements Pinger with a fixed result.
type fakePinger struct {
	name string
	err  error
}

func (p *fakePinger) Ping(context.Context) error { return p.err }
func (p *fakePinger) Name() string               { return p.name }

func newReadyTestServer(t *testing.T, pingers ...Pinger) http.Handler {
	t.Helper()
	s, err := New(&fakeAsker{}, &fakeIngester{}, &fakeRegistry{}, &Config{
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		UploadDir:       t.TempDir(),
		MetricsRegistry: prometheus.NewRegistry(),
		Pingers:         pingers,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s.Handler()
}

func TestReadyNoPingers(t *testing.T) {
	t.Parallel()

	h := newReadyTestServer(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))

	if w.Code != http.StatusOK {
		t.Errorf("liveness-only mode should return 200, got %d", w.Code)
	}
}

func TestReadyAllHealthy(t *testing.T) {
	t.Parallel()

	h := newReadyTestServer(t,
		&fakePinger{name: "qdrant"},
		&fakePinger{name: "sqlite"},
	)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Ready || len(resp.Checks) != 2 {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestReadyOneFailing(t *testing.T) {
	t.Parallel()

	h := newReadyTestServer(t,
		&fakePinger{name: "qdrant"},
		&fakePinger{name: "sqlite", err: errors.New("database is locked")},
	)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Ready {
		t.Error("ready must be false with a failing probe")
	}
	var found bool
	for _, c := range resp.Checks {
		if c.Name == "sqlite" && !c.OK && c.Error != "" {
			found = true
		}
	}
	if !found {
		t.Errorf("failing check not reported: %+v", resp.Checks)
	}
}

func TestMultiPingerStopsAtFirstError(t *testing.T) {
	t.Parallel()

	mp := NewMultiPinger(
		&fakePinger{name: "first"},
		&fakePinger{name: "second", err: errors.New("down")},
		&fakePinger{name: "third"},
	)
	err := mp.Ping(context.Background())
	if err == nil {
		t.Fatal("expected error from failing pinger")
	}
	if got := err.Error(); got != "second: down" {
		t.Errorf("error = %q, want it prefixed with the failing dependency", got)
	}
}
