// Package store provides the SQLite-backed relational side of the service:
// the tenant registry, ingested-document bookkeeping, and the conversation
// log reviewed through the admin surface. Vector data lives elsewhere; this
// store holds everything an operator audits.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Tenant is one isolated customer of the service.
type Tenant struct {
	// ID is the stable identifier used in URLs and vector payloads.
	ID string `json:"id"`
	// Name is the human-readable display name.
	Name string `json:"name"`
}

// Document records one successful ingestion.
type Document struct {
	ID         int64     `json:"id"`
	TenantID   string    `json:"tenant_id"`
	FileName   string    `json:"file_name"`
	UploadDate time.Time `json:"upload_date"`
	ChunkCount int       `json:"chunk_count"`
}

// ConversationLog is one recorded question/answer exchange. Validated marks
// logs a human reviewer has confirmed as correct.
type ConversationLog struct {
	ID         int64     `json:"id"`
	TenantID   string    `json:"tenant_id"`
	TenantName string    `json:"tenant_name"`
	Timestamp  time.Time `json:"timestamp"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Citations  []string  `json:"citations"`
	Validated  bool      `json:"validated"`
}

// Store is the SQLite-backed registry and audit log. Safe for concurrent
// use; writes serialize on a single connection.
type Store struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default database path. It resolves to
// ~/.tenantrag/tenantrag.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".tenantrag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "tenantrag.db"), nil
}

// Open opens (or creates) a Store at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tenants (
    id    TEXT PRIMARY KEY,
    name  TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS documents (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id    TEXT    NOT NULL REFERENCES tenants(id),
    file_name    TEXT    NOT NULL,
    upload_date  INTEGER NOT NULL,  -- Unix timestamp (seconds)
    chunk_count  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_tenant
    ON documents (tenant_id, upload_date);
CREATE TABLE IF NOT EXISTS conversation_logs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id  TEXT    NOT NULL REFERENCES tenants(id),
    ts         INTEGER NOT NULL,  -- Unix timestamp (seconds)
    question   TEXT    NOT NULL,
    answer     TEXT    NOT NULL,
    citations  TEXT    NOT NULL DEFAULT '[]',  -- JSON array
    validated  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_conversation_logs_ts
    ON conversation_logs (ts DESC);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// SeedTenants upserts the configured tenant set. Existing tenants keep
// their documents and logs; only the display name is refreshed.
func (s *Store) SeedTenants(ctx context.Context, tenants []Tenant) error {
	const q = `INSERT INTO tenants (id, name) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name`
	for _, t := range tenants {
		if t.ID == "" || t.Name == "" {
			return fmt.Errorf("store: tenant needs both id and name, got %+v", t)
		}
		if _, err := s.db.ExecContext(ctx, q, t.ID, t.Name); err != nil {
			return fmt.Errorf("store: seeding tenant %q: %w", t.ID, err)
		}
	}
	return nil
}

// ListTenants returns all tenants ordered by ID.
func (s *Store) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("store: list tenants scan: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list tenants rows: %w", err)
	}
	return tenants, nil
}

// TenantExists reports whether a tenant ID is registered.
func (s *Store) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM tenants WHERE id = ?`, tenantID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: tenant lookup: %w", err)
	}
	return true, nil
}

// RecordDocument persists one ingested-document row.
func (s *Store) RecordDocument(ctx context.Context, tenantID, fileName string, chunkCount int) error {
	const q = `INSERT INTO documents (tenant_id, file_name, upload_date, chunk_count) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, tenantID, fileName, time.Now().Unix(), chunkCount); err != nil {
		return fmt.Errorf("store: record document: %w", err)
	}
	return nil
}

// ListDocuments returns a tenant's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, tenantID string) ([]Document, error) {
	const q = `SELECT id, tenant_id, file_name, upload_date, chunk_count
FROM documents WHERE tenant_id = ? ORDER BY upload_date DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var ts int64
		if err := rows.Scan(&d.ID, &d.TenantID, &d.FileName, &ts, &d.ChunkCount); err != nil {
			return nil, fmt.Errorf("store: list documents scan: %w", err)
		}
		d.UploadDate = time.Unix(ts, 0).UTC()
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list documents rows: %w", err)
	}
	return docs, nil
}

// RecordConversation persists one question/answer exchange.
func (s *Store) RecordConversation(ctx context.Context, tenantID, question, answer string, citations []string) error {
	if citations == nil {
		citations = []string{}
	}
	blob, err := json.Marshal(citations)
	if err != nil {
		return fmt.Errorf("store: encoding citations: %w", err)
	}
	const q = `INSERT INTO conversation_logs (tenant_id, ts, question, answer, citations) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, tenantID, time.Now().Unix(), question, answer, string(blob)); err != nil {
		return fmt.Errorf("store: record conversation: %w", err)
	}
	return nil
}

// ListLogs returns up to limit conversation logs across all tenants, newest
// first, with tenant display names joined in. A non-positive limit means 100.
func (s *Store) ListLogs(ctx context.Context, limit int) ([]ConversationLog, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT l.id, l.tenant_id, COALESCE(t.name, l.tenant_id), l.ts, l.question, l.answer, l.citations, l.validated
FROM   conversation_logs l
LEFT JOIN tenants t ON t.id = l.tenant_id
ORDER  BY l.ts DESC, l.id DESC
LIMIT  ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list logs: %w", err)
	}
	defer rows.Close()

	var logs []ConversationLog
	for rows.Next() {
		var l ConversationLog
		var ts int64
		var citations string
		var validated int
		if err := rows.Scan(&l.ID, &l.TenantID, &l.TenantName, &ts, &l.Question, &l.Answer, &citations, &validated); err != nil {
			return nil, fmt.Errorf("store: list logs scan: %w", err)
		}
		l.Timestamp = time.Unix(ts, 0).UTC()
		l.Validated = validated != 0
		if err := json.Unmarshal([]byte(citations), &l.Citations); err != nil {
			l.Citations = []string{}
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list logs rows: %w", err)
	}
	return logs, nil
}

// MarkValidated flags a conversation log as human-reviewed. It reports
// whether a log with that ID existed.
func (s *Store) MarkValidated(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE conversation_logs SET validated = 1 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("store: mark validated: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: mark validated result: %w", err)
	}
	return n > 0, nil
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
