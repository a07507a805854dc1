package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

// ScanHandler handles scan job API requests
type ScanHandler struct {
	scans  interfaces.ScanStorage
	logger arbor.ILogger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(scans interfaces.ScanStorage, logger arbor.ILogger) *ScanHandler {
	return &ScanHandler{
		scans:  scans,
		logger: logger,
	}
}

// ListScansHandler handles GET /api/scans?keyword_id=&status=&limit=&offset=
func (h *ScanHandler) ListScansHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	offset := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	opts := &interfaces.ScanJobListOptions{
		KeywordID: r.URL.Query().Get("keyword_id"),
		Status:    models.ScanJobStatus(r.URL.Query().Get("status")),
		Limit:     limit,
		Offset:    offset,
	}

	jobs, err := h.scans.ListJobs(ctx, opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list scan jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list scan jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":   jobs,
		"count":  len(jobs),
		"limit":  limit,
		"offset": offset,
	})
}

// GetScanHandler handles GET /api/scans/{id}; the response includes the scan
// result when one exists.
func (h *ScanHandler) GetScanHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID := pathID(r.URL.Path, "/api/scans/")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Scan job ID is required")
		return
	}

	job, err := h.scans.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Scan job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get scan job")
		WriteError(w, http.StatusInternalServerError, "Failed to get scan job")
		return
	}

	response := map[string]interface{}{"job": job}
	if result, err := h.scans.GetResultByJob(ctx, jobID); err == nil {
		response["result"] = result
	}

	WriteJSON(w, http.StatusOK, response)
}

// CancelScanHandler handles POST /api/scans/{id}/cancel. Cancellation is
// cooperative: a pending job never runs, a processing job finishes its
// current step and the cancel is rejected once the job is terminal.
func (h *ScanHandler) CancelScanHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID := pathID(strings.TrimSuffix(r.URL.Path, "/cancel"), "/api/scans/")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Scan job ID is required")
		return
	}

	job, err := h.scans.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Scan job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get scan job")
		WriteError(w, http.StatusInternalServerError, "Failed to get scan job")
		return
	}

	if job.Status.IsTerminal() {
		WriteError(w, http.StatusConflict, "Scan job already finished")
		return
	}

	if err := h.scans.UpdateJobStatus(ctx, jobID, models.ScanStatusCancelled, "cancelled by user"); err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to cancel scan job")
		WriteError(w, http.StatusInternalServerError, "Failed to cancel scan job")
		return
	}

	h.logger.Info().Str("job_id", jobID).Msg("Scan job cancelled")
	WriteSuccess(w, "Scan job cancelled")
}
