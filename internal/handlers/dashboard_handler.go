package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/services/metrics"
)

// DashboardHandler serves the aggregated share-of-model metrics
type DashboardHandler struct {
	aggregator *metrics.Aggregator
	logger     arbor.ILogger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(aggregator *metrics.Aggregator, logger arbor.ILogger) *DashboardHandler {
	return &DashboardHandler{
		aggregator: aggregator,
		logger:     logger,
	}
}

// GetDashboardHandler handles GET /api/dashboard?project_id=&days=
func (h *DashboardHandler) GetDashboardHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	ctx := r.Context()

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		WriteError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	days := 7
	if s := r.URL.Query().Get("days"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 || parsed > 365 {
			WriteError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = parsed
	}

	result, err := h.aggregator.ProjectSummary(ctx, projectID, days)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to compute dashboard metrics")
		WriteError(w, http.StatusInternalServerError, "Failed to compute dashboard metrics")
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
