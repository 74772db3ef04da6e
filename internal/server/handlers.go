package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/54b3r/tenantrag-go/internal/chat"
	"github.com/54b3r/tenantrag-go/internal/ingestion"
	"github.com/54b3r/tenantrag-go/internal/logging"
)

// maxUploadMemory bounds how much of a multipart upload is buffered in
// memory before spilling to disk.
const maxUploadMemory = 32 << 20 // 32 MiB

// handleChat handles POST /api/tenants/{tenant}/chat. The chat service
// never fails, so the handler always answers 200 with an answer body once
// the tenant and request shape check out.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := s.resolveTenant(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChatTimeout)
	defer cancel()

	start := time.Now()
	answer := s.chat.Ask(ctx, tenantID, req.Question)
	s.observeChat(answer, time.Since(start))

	writeJSON(w, http.StatusOK, answer)
}

// observeChat records the outcome and duration of one chat round trip.
func (s *Server) observeChat(a chat.Answer, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case len(a.Citations) == 1 && a.Citations[0] == chat.ErrorCitation:
		outcome = "error"
	case a.Answer == chat.RefusalAnswer:
		outcome = "refusal"
	}
	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// handleUpload handles POST /api/tenants/{tenant}/documents. Each uploaded
// file is staged under the tenant's upload directory and indexed; one bad
// file does not fail the batch.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := s.resolveTenant(w, r)
	if !ok {
		return
	}
	log := logging.FromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}

	var headers []*multipartFile
	for _, fhs := range r.MultipartForm.File {
		for _, fh := range fhs {
			headers = append(headers, &multipartFile{fh.Filename, fh})
		}
	}
	if len(headers) == 0 {
		http.Error(w, "no files in request", http.StatusBadRequest)
		return
	}

	resp := uploadResponse{TenantID: tenantID, Files: make([]uploadFileResult, 0, len(headers))}
	for _, mf := range headers {
		result := uploadFileResult{FileName: ingestion.SanitizeFileName(mf.name)}

		f, err := mf.header.Open()
		if err != nil {
			result.Error = "could not read upload"
			resp.Files = append(resp.Files, result)
			continue
		}
		path, err := ingestion.SaveUpload(s.cfg.UploadDir, tenantID, mf.name, f)
		f.Close()
		if err != nil {
			log.Warn("upload: staging failed",
				slog.String("tenant_id", tenantID),
				slog.String("file", mf.name),
				slog.String("error", err.Error()))
			result.Error = "could not store upload"
			resp.Files = append(resp.Files, result)
			continue
		}

		n, err := s.ingest.IngestFile(r.Context(), tenantID, path)
		if err != nil {
			log.Warn("upload: indexing failed",
				slog.String("tenant_id", tenantID),
				slog.String("file", mf.name),
				slog.String("error", err.Error()))
			result.Error = err.Error()
		} else {
			result.Chunks = n
			s.metrics.ingestDocumentsTotal.Inc()
			s.metrics.ingestChunksTotal.Add(float64(n))
		}
		resp.Files = append(resp.Files, result)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleListDocuments handles GET /api/tenants/{tenant}/documents.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := s.resolveTenant(w, r)
	if !ok {
		return
	}
	docs, err := s.registry.ListDocuments(r.Context(), tenantID)
	if err != nil {
		s.internalError(w, r, "listing documents", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenant_id": tenantID, "documents": docs})
}

// handleTenants handles GET /api/tenants.
func (s *Server) handleTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.registry.ListTenants(r.Context())
	if err != nil {
		s.internalError(w, r, "listing tenants", err)
		return
	}
	writeJSON(w, http.StatusOK, tenantsResponse{Tenants: tenants})
}

// handleLogs handles GET /api/admin/logs. The optional ?limit= query caps
// how many logs come back (default 100).
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	logs, err := s.registry.ListLogs(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, "listing logs", err)
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{Logs: logs})
}

// handleValidate handles POST /api/admin/logs/{id}/validate, marking one
// conversation log as human-reviewed.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid log id", http.StatusBadRequest)
		return
	}
	found, err := s.registry.MarkValidated(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "validating log", err)
		return
	}
	if !found {
		http.Error(w, "log not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "validated": true})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolveTenant extracts and validates the {tenant} path segment. On an
// unknown tenant it writes 404 and returns ok=false.
func (s *Server) resolveTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := r.PathValue("tenant")
	exists, err := s.registry.TenantExists(r.Context(), tenantID)
	if err != nil {
		s.internalError(w, r, "tenant lookup", err)
		return "", false
	}
	if !exists {
		http.Error(w, "unknown tenant", http.StatusNotFound)
		return "", false
	}
	return tenantID, true
}

// internalError logs the cause and answers 500 without leaking details.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logging.FromContext(r.Context()).Error("server: "+op+" failed",
		slog.String("error", err.Error()))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// multipartFile pairs an upload's client-supplied name with its part header.
type multipartFile struct {
	name   string
	header *multipart.FileHeader
}
