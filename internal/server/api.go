// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/JMit-dev/myrientDL/pkg/myrient"
)

// CrawlRequest is the request body for starting a crawl+download job.
type CrawlRequest struct {
	StartURL   string `json:"startUrl"`
	MaxDepth   int    `json:"maxDepth,omitempty"`
	Console    string `json:"console,omitempty"`
	Collection string `json:"collection,omitempty"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse represents a simple success message.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStartCrawl starts a new crawl+download job.
func (s *Server) handleStartCrawl(w http.ResponseWriter, r *http.Request) {
	var req CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.StartURL == "" {
		req.StartURL = s.config.MyrientConfig.BaseURL
	}

	job, wasExisting, err := s.jobs.CreateJob(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create job", err.Error())
		return
	}

	if wasExisting {
		writeJSON(w, http.StatusOK, map[string]any{
			"job":     job,
			"message": "Crawl already in progress for this URL",
		})
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// handleListJobs returns all jobs.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobs.ListJobs()
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// handleGetJob returns a specific job.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok := s.jobs.GetJob(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found", "")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleCancelJob cancels a job.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.jobs.CancelJob(id) {
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Job cancelled"})
		return
	}
	writeError(w, http.StatusNotFound, "Job not found or already completed", "")
}

// handleSearch runs a catalog search via the query string (q, console,
// collection, limit).
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "Missing required query param: q", "")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	searcher := myrient.NewSearcher(s.config.Store)
	results, err := searcher.Search(r.Context(), q, myrient.SearchOptions{
		Console:    r.URL.Query().Get("console"),
		Collection: myrient.Collection(r.URL.Query().Get("collection")),
		Limit:      limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

// handleList returns cataloged files matching the query string's
// filters (status, console, collection, limit, offset).
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	files, err := s.config.Store.List(r.Context(), myrient.ListFilter{
		Status:     myrient.DownloadStatus(r.URL.Query().Get("status")),
		Console:    r.URL.Query().Get("console"),
		Collection: myrient.Collection(r.URL.Query().Get("collection")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "List failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files, "count": len(files)})
}

// handleStats returns catalog-wide statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.config.Store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Stats failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleGetSettings returns the server's effective crawl/download config.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.config.MyrientConfig)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}
