package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"beacon-hq/beacon/pkg/visit"
	"beacon-hq/beacon/pkg/visit/query"
)

// errorResponse is the JSON body for every error status.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Fields  []visit.FieldError `json:"fields,omitempty"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string, fields []visit.FieldError) {
	writeJSON(w, status, errorResponse{Error: errorBody{
		Code:    code,
		Message: message,
		Fields:  fields,
	}})
}

// writeDomainError maps a domain error onto its HTTP status. Admission
// denials get 429 plus a Retry-After hint; validation failures get 422
// with per-field details; missing records get 404; everything else is a
// storage fault and gets 503.
func writeDomainError(w http.ResponseWriter, err error) {
	var denied *visit.AdmissionDeniedError
	if errors.As(err, &denied) {
		w.Header().Set("Retry-After", strconv.Itoa(int(denied.RetryAfter.Seconds())))
		writeError(w, http.StatusTooManyRequests, "admission_denied", "too many requests, slow down", nil)
		return
	}

	var invalid *visit.ValidationError
	if errors.As(err, &invalid) {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "payload failed validation", invalid.Fields)
		return
	}

	if errors.Is(err, visit.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "no visit with that id", nil)
		return
	}

	writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage backend unavailable", nil)
}

// handleCreateVisit handles POST /api/visits.
func (s *Server) handleCreateVisit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", fmt.Sprintf("request body is not valid JSON: %v", err), nil)
		return
	}

	clientIP := clientAddress(r, s.config.Server.TrustProxyHeaders)

	v, err := s.recorder.Record(r.Context(), clientIP, payload)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, v)
}

// handleListVisits handles GET /api/visits.
func (s *Server) handleListVisits(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	filters := make(map[string]string)
	for _, key := range []string{"ip", "language", "userAgent", "platform", "timezone"} {
		if value := params.Get(key); value != "" {
			filters[key] = value
		}
	}

	page, _ := strconv.Atoi(params.Get("page"))
	perPage, _ := strconv.Atoi(params.Get("perPage"))
	if perPage == 0 {
		perPage = s.config.Query.DefaultPerPage
	}

	ctx := r.Context()
	if s.config.Query.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Query.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := query.Execute(ctx, s.storage, filters, params.Get("sort"), params.Get("order"), page, perPage)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.collector.ObserveQuery("list", time.Since(start))

	writeJSON(w, http.StatusOK, result)
}

// handleGetVisit handles GET /api/visits/{id}.
func (s *Server) handleGetVisit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be an integer", nil)
		return
	}

	v, err := s.storage.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// handleDeleteVisit handles DELETE /api/visits/{id}.
func (s *Server) handleDeleteVisit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be an integer", nil)
		return
	}

	deleted, err := s.storage.DeleteByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "not_found", "no visit with that id", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleClearVisits handles DELETE /api/visits.
func (s *Server) handleClearVisits(w http.ResponseWriter, r *http.Request) {
	removed, err := s.storage.Clear(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.Info("visit store cleared", "removed", removed, "request_id", GetRequestID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := s.aggregator.Stats(r.Context(), time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.collector.ObserveQuery("stats", time.Since(start))

	writeJSON(w, http.StatusOK, result)
}

// handleExportJSON handles GET /api/export.json.
func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	records, err := s.storage.Query(r.Context(), exportQuery())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="visits.json"`)
	if err := s.jsonExporter.Export(r.Context(), records, w); err != nil {
		s.logger.Error("json export failed", "error", err, "request_id", GetRequestID(r.Context()))
	}
}

// handleExportCSV handles GET /api/export.csv.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	records, err := s.storage.Query(r.Context(), exportQuery())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="visits.csv"`)
	if err := s.csvExporter.Export(r.Context(), records, w); err != nil {
		s.logger.Error("csv export failed", "error", err, "request_id", GetRequestID(r.Context()))
	}
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.storage.CountAll(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// exportQuery returns the unpaged full-store query used by the export
// endpoints: every record, newest first.
func exportQuery() *visit.Query {
	return &visit.Query{
		SortField: visit.FieldID,
		SortOrder: visit.SortDesc,
	}
}
