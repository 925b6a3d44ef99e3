// Package httpapi exposes the video-assembly submission and status API,
// grounded on the teacher's internal/api package (Handler struct wrapping
// its collaborators, respondJSON/respondError helpers, chi route params),
// generalized from a multi-stage project/clip API down to the three
// operations this system needs: submit a specification, poll status,
// download the result.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kira7dn/videoassembly/internal/jobstore"
)

// Assembler runs the full pipeline for one specification document and
// reports its outcome into the job store. Submitted by the caller so the
// handler package stays independent of pipeline wiring.
type Assembler interface {
	Assemble(ctx context.Context, jobID string, specDoc map[string]any)
}

// Handler wires the job store, the pipeline runner, and the output
// directory together into HTTP handlers.
type Handler struct {
	jobs      jobstore.JobStore
	assembler Assembler
	outputDir string
}

// NewHandler builds a Handler. outputDir is where GetDownload looks up
// finished files for the local-uploader case.
func NewHandler(jobs jobstore.JobStore, assembler Assembler, outputDir string) *Handler {
	return &Handler{jobs: jobs, assembler: assembler, outputDir: outputDir}
}

// CreateVideoRequest is the POST /video/create body: an arbitrary
// specification document, validated downstream by the pipeline's own
// validate stage rather than here.
type CreateVideoRequest struct {
	Specification map[string]any `json:"specification"`
}

type createVideoResponse struct {
	JobID  string          `json:"job_id"`
	Status jobstore.Status `json:"status"`
}

// CreateVideo handles POST /video/create: it creates a queued job record
// and starts the pipeline asynchronously, returning immediately with the
// job ID the caller polls.
func (h *Handler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req CreateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Specification) == 0 {
		respondError(w, http.StatusBadRequest, "specification is required")
		return
	}

	job := jobstore.NewJob()
	if err := h.jobs.Create(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	go h.assembler.Assemble(context.Background(), job.ID, req.Specification)

	respondJSON(w, http.StatusCreated, createVideoResponse{JobID: job.ID, Status: job.Status})
}

// GetStatus handles GET /video/status/{job_id}.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	job, err := h.jobs.Get(r.Context(), jobID)
	if errors.Is(err, jobstore.ErrNotFound) {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch job")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// GetDownload handles GET /video/download/{filename}, serving files from
// the local output directory. Rejects any filename containing a path
// separator or ".." to prevent escaping outputDir.
func (h *Handler) GetDownload(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if !isSafeFilename(filename) {
		respondError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	path := filepath.Join(h.outputDir, filename)
	http.ServeFile(w, r, path)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func isSafeFilename(name string) bool {
	if name == "" || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
