package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/tenantrag-go/internal/chat"
	"github.com/54b3r/tenantrag-go/internal/store"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeAsker implements the asker interface for tests.
type fakeAsker struct {
	// answer is returned for every Ask call.
	answer chat.Answer
	// gotTenant records the tenant ID of the last call.
	gotTenant string
	// gotQuestion records the question of the last call.
	gotQuestion string
}

func (f *fakeAsker) Ask(_ context.Context, tenantID, question string) chat.Answer {
	f.gotTenant = tenantID
	f.gotQuestion = question
	return f.answer
}

// fakeIngester implements the ingester interface for tests.
type fakeIngester struct {
	chunks int
	err    error
	calls  int
}

func (f *fakeIngester) IngestFile(_ context.Context, tenantID, path string) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.chunks, nil
}

// fakeRegistry implements the registry interface over fixed data.
type fakeRegistry struct {
	tenants   []store.Tenant
	docs      []store.Document
	logs      []store.ConversationLog
	validated []int64
	err       error
}

func (f *fakeRegistry) ListTenants(context.Context) ([]store.Tenant, error) {
	return f.tenants, f.err
}

func (f *fakeRegistry) TenantExists(_ context.Context, tenantID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, t := range f.tenants {
		if t.ID == tenantID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRegistry) ListDocuments(context.Context, string) ([]store.Document, error) {
	return f.docs, f.err
}

func (f *fakeRegistry) ListLogs(context.Context, int) ([]store.ConversationLog, error) {
	return f.logs, f.err
}

func (f *fakeRegistry) MarkValidated(_ context.Context, id int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, l := range f.logs {
		if l.ID == id {
			f.validated = append(f.validated, id)
			return true, nil
		}
	}
	return false, nil
}

// newTestServer builds a fully wired *Server with fakes and a fresh metrics
// registry, returning its root handler for httptest requests.
func newTestServer(t *testing.T, a asker, ing ingester, reg registry) (*Server, http.Handler) {
	t.Helper()
	if a == nil {
		a = &fakeAsker{}
	}
	if ing == nil {
		ing = &fakeIngester{}
	}
	if reg == nil {
		reg = &fakeRegistry{tenants: []store.Tenant{{ID: "tenantA", Name: "Tenant Alpha Corp"}}}
	}
	s, err := New(a, ing, reg, &Config{
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		UploadDir:       t.TempDir(),
		MetricsRegistry: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s, s.Handler()
}

// ---------------------------------------------------------------------------
// POST /api/tenants/{tenant}/chat
// ---------------------------------------------------------------------------

func TestHandleChat_UnknownTenant(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/tenants/intruder/chat",
		strings.NewReader(`{"question":"anything"}`))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown tenant, got %d", w.Code)
	}
}

func TestHandleChat_MissingQuestion(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/tenants/tenantA/chat",
		strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/tenants/tenantA/chat",
		strings.NewReader(`not-json`))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleChat_Success(t *testing.T) {
	t.Parallel()

	a := &fakeAsker{answer: chat.Answer{
		Answer:    "25 days per year.",
		Citations: []string{"handbook.pdf (Page 4)"},
	}}
	_, h := newTestServer(t, a, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tenants/tenantA/chat",
		strings.NewReader(`{"question":"How many vacation days?"}`))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if a.gotTenant != "tenantA" {
		t.Errorf("asker received tenant %q", a.gotTenant)
	}

	var got chat.Answer
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Answer != "25 days per year." {
		t.Errorf("answer = %q", got.Answer)
	}
	if len(got.Citations) != 1 || got.Citations[0] != "handbook.pdf (Page 4)" {
		t.Errorf("citations = %v", got.Citations)
	}
}

// ---------------------------------------------------------------------------
// POST /api/tenants/{tenant}/documents
// ---------------------------------------------------------------------------

// multipartBody builds a multipart request body with the given files.
func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("writing form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleUpload_Success(t *testing.T) {
	t.Parallel()

	ing := &fakeIngester{chunks: 5}
	_, h := newTestServer(t, nil, ing, nil)

	body, contentType := multipartBody(t, map[string]string{"report.txt": "content"})
	req := httptest.NewRequest(http.MethodPost, "/api/tenants/tenantA/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp uploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Files) != 1 || resp.Files[0].Chunks != 5 || resp.Files[0].Error != "" {
		t.Errorf("unexpected upload result: %+v", resp.Files)
	}
	if ing.calls != 1 {
		t.Errorf("ingester called %d times, want 1", ing.calls)
	}
}

func TestHandleUpload_IngestFailureIsPerFile(t *testing.T) {
	t.Parallel()

	ing := &fakeIngester{err: errors.New("embedding backend down")}
	_, h := newTestServer(t, nil, ing, nil)

	body, contentType := multipartBody(t, map[string]string{"report.txt": "content"})
	req := httptest.NewRequest(http.MethodPost, "/api/tenants/tenantA/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("batch response must be 200 even when a file fails, got %d", w.Code)
	}
	var resp uploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Files) != 1 || resp.Files[0].Error == "" {
		t.Errorf("expected per-file error, got %+v", resp.Files)
	}
}

func TestHandleUpload_NoFiles(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t, nil, nil, nil)
	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/tenants/tenantA/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Tenant and admin endpoints
// ---------------------------------------------------------------------------

func TestHandleTenants(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{tenants: []store.Tenant{
		{ID: "tenantA", Name: "Tenant Alpha Corp"},
		{ID: "tenantB", Name: "Tenant Beta Solutions"},
	}}
	_, h := newTestServer(t, nil, nil, reg)

	req := httptest.NewRequest(http.MethodGet, "/api/tenants", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp tenantsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Tenants) != 2 {
		t.Errorf("expected 2 tenants, got %d", len(resp.Tenants))
	}
}

func TestHandleLogs_InvalidLimit(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/logs?limit=banana", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleLogs(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{
		tenants: []store.Tenant{{ID: "tenantA", Name: "Tenant Alpha Corp"}},
		logs: []store.ConversationLog{
			{ID: 7, TenantID: "tenantA", Question: "q", Answer: "a", Citations: []string{"x.pdf (Page 1)"}},
		},
	}
	_, h := newTestServer(t, nil, nil, reg)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/logs", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp logsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Logs) != 1 || resp.Logs[0].ID != 7 {
		t.Errorf("unexpected logs: %+v", resp.Logs)
	}
}

func TestHandleValidate(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{
		tenants: []store.Tenant{{ID: "tenantA", Name: "Tenant Alpha Corp"}},
		logs:    []store.ConversationLog{{ID: 7}},
	}
	_, h := newTestServer(t, nil, nil, reg)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/logs/7/validate", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(reg.validated) != 1 || reg.validated[0] != 7 {
		t.Errorf("expected log 7 validated, got %v", reg.validated)
	}
}

func TestHandleValidate_NotFound(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/logs/999/validate", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleValidate_BadID(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/logs/banana/validate", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
