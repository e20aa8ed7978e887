package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handleIndex returns basic importer information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	info := map[string]interface{}{
		"service":     "Record Stream Importer",
		"version":     "1.0.0",
		"description": "Ingests and verifies consensus node record stream files",
		"endpoints": map[string]string{
			"GET /":                          "This page - Service information",
			"GET /health":                    "Health check endpoint",
			"GET /metrics":                   "Prometheus metrics for monitoring",
			"GET /files":                     "List imported record files (supports ?limit=, ?offset=)",
			"GET /files/{name}":              "Get record file metadata including its verified hash",
			"GET /files/{name}/transactions": "List raw transactions of a record file",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.repository.Ping(ctx); err != nil {
		s.sendError(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "record-stream-importer",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// handleListFiles lists imported record files
// GET /files?limit=50&offset=0
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := parsePagination(r)

	files, err := s.repository.ListRecordFiles(ctx, limit, offset)
	if err != nil {
		slog.Error("Failed to list record files", "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"files":  files,
		"limit":  limit,
		"offset": offset,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleFileRoutes routes record file sub-endpoints (with trailing slash)
func (s *Server) handleFileRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/files/")
	parts := strings.Split(path, "/")

	// GET /files/{name}
	if len(parts) == 1 {
		s.handleGetFile(w, r, parts[0])
		return
	}

	// GET /files/{name}/transactions
	if len(parts) == 2 && parts[1] == "transactions" {
		s.handleGetFileTransactions(w, r, parts[0])
		return
	}

	s.sendError(w, "Endpoint not found", http.StatusNotFound)
}

// handleGetFile returns the metadata of a single record file
// GET /files/{name}
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request, name string) {
	if name == "" {
		s.sendError(w, "Record file name required", http.StatusBadRequest)
		return
	}

	file, err := s.repository.GetRecordFile(r.Context(), name)
	if err != nil {
		s.sendError(w, "Record file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(file)
}

// handleGetFileTransactions lists the raw transactions of a record file
// GET /files/{name}/transactions?limit=50&offset=0
func (s *Server) handleGetFileTransactions(w http.ResponseWriter, r *http.Request, name string) {
	if name == "" {
		s.sendError(w, "Record file name required", http.StatusBadRequest)
		return
	}

	limit, offset := parsePagination(r)

	transactions, err := s.repository.ListTransactions(r.Context(), name, limit, offset)
	if err != nil {
		slog.Error("Failed to list transactions", "file", name, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"file":         name,
		"transactions": transactions,
		"limit":        limit,
		"offset":       offset,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// sendError sends a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
