package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/tenantrag-go/internal/chat"
	"github.com/54b3r/tenantrag-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ChatTimeout bounds one question/answer round trip, retrieval and
	// generation included. Defaults to 2 minutes if zero.
	ChatTimeout time.Duration
	// UploadDir is the root directory uploads are staged under, one
	// subdirectory per tenant (default: "uploads").
	UploadDir string
	// StaticDir is the directory the web UI is served from
	// (default: "ui/static").
	StaticDir string
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives all server metrics. If nil a private registry
	// is created, which also backs GET /metrics.
	MetricsRegistry *prometheus.Registry
}

// asker is the interface handleChat calls to answer a question.
// *chat.Service satisfies it; tests inject a fake.
type asker interface {
	Ask(ctx context.Context, tenantID, question string) chat.Answer
}

// ingester is the interface handleUpload calls to index a staged file.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingester interface {
	IngestFile(ctx context.Context, tenantID, path string) (int, error)
}

// registry is the relational-store surface the server needs: the tenant
// list and the admin log review operations. *store.Store satisfies it.
type registry interface {
	ListTenants(ctx context.Context) ([]store.Tenant, error)
	TenantExists(ctx context.Context, tenantID string) (bool, error)
	ListDocuments(ctx context.Context, tenantID string) ([]store.Document, error)
	ListLogs(ctx context.Context, limit int) ([]store.ConversationLog, error)
	MarkValidated(ctx context.Context, id int64) (bool, error)
}

// Server is the HTTP server that exposes the tenant QA service.
type Server struct {
	// chat answers tenant questions.
	chat asker
	// ingest indexes uploaded documents.
	ingest ingester
	// registry backs the tenant list and admin endpoints.
	registry registry
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments for this instance.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/tenants/{tenant}/chat.
type chatRequest struct {
	// Question is the tenant user's natural language question.
	Question string `json:"question"`
}

// uploadFileResult is one file's outcome in an upload response.
type uploadFileResult struct {
	// FileName is the sanitized name the upload was stored under.
	FileName string `json:"file_name"`
	// Chunks is the number of chunks indexed from the file.
	Chunks int `json:"chunks"`
	// Error is the failure reason when the file could not be indexed.
	Error string `json:"error,omitempty"`
}

// uploadResponse is the JSON response for POST /api/tenants/{tenant}/documents.
type uploadResponse struct {
	// TenantID identifies the tenant the files were indexed for.
	TenantID string `json:"tenant_id"`
	// Files is the per-file outcome list, in upload order.
	Files []uploadFileResult `json:"files"`
}

// tenantsResponse is the JSON response for GET /api/tenants.
type tenantsResponse struct {
	Tenants []store.Tenant `json:"tenants"`
}

// logsResponse is the JSON response for GET /api/admin/logs.
type logsResponse struct {
	Logs []store.ConversationLog `json:"logs"`
}
