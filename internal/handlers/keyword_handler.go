package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

// KeywordHandler handles keyword management API requests
type KeywordHandler struct {
	keywords  interfaces.KeywordStorage
	scheduler interfaces.SchedulerService
	scanner   interfaces.ScanRequester
	logger    arbor.ILogger
}

// NewKeywordHandler creates a new keyword handler
func NewKeywordHandler(keywords interfaces.KeywordStorage, scheduler interfaces.SchedulerService, scanner interfaces.ScanRequester, logger arbor.ILogger) *KeywordHandler {
	return &KeywordHandler{
		keywords:  keywords,
		scheduler: scheduler,
		scanner:   scanner,
		logger:    logger,
	}
}

type createKeywordRequest struct {
	ProjectID string   `json:"project_id"`
	Text      string   `json:"text"`
	Intent    string   `json:"intent"`
	Frequency string   `json:"frequency"`
	Engines   []string `json:"engines"`
}

// CreateKeywordHandler handles POST /api/keywords
func (h *KeywordHandler) CreateKeywordHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createKeywordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if _, err := h.keywords.GetProject(ctx, req.ProjectID); err != nil {
		WriteError(w, http.StatusBadRequest, "Unknown project")
		return
	}

	now := time.Now()
	keyword := &models.Keyword{
		ID:        common.NewKeywordID(),
		ProjectID: req.ProjectID,
		Text:      req.Text,
		Intent:    models.IntentCategory(req.Intent),
		Frequency: models.ScanFrequency(req.Frequency),
		Engines:   req.Engines,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := keyword.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.keywords.SaveKeyword(ctx, keyword); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save keyword")
		WriteError(w, http.StatusInternalServerError, "Failed to save keyword")
		return
	}

	if err := h.scheduler.ScheduleKeyword(keyword.ID, keyword.Frequency, keyword.Engines); err != nil {
		h.logger.Warn().Err(err).Str("keyword_id", keyword.ID).Msg("Failed to schedule keyword")
	}

	h.logger.Info().
		Str("keyword_id", keyword.ID).
		Str("project_id", keyword.ProjectID).
		Str("frequency", string(keyword.Frequency)).
		Msg("Keyword created")
	WriteJSON(w, http.StatusCreated, keyword)
}

// ListKeywordsHandler handles GET /api/keywords?project_id=
func (h *KeywordHandler) ListKeywordsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		WriteError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	keywords, err := h.keywords.ListKeywordsByProject(ctx, projectID)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to list keywords")
		WriteError(w, http.StatusInternalServerError, "Failed to list keywords")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"keywords": keywords,
		"count":    len(keywords),
	})
}

// GetKeywordHandler handles GET /api/keywords/{id}
func (h *KeywordHandler) GetKeywordHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	keywordID := pathID(r.URL.Path, "/api/keywords/")
	if keywordID == "" {
		WriteError(w, http.StatusBadRequest, "Keyword ID is required")
		return
	}

	keyword, err := h.keywords.GetKeyword(ctx, keywordID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Keyword not found")
			return
		}
		h.logger.Error().Err(err).Str("keyword_id", keywordID).Msg("Failed to get keyword")
		WriteError(w, http.StatusInternalServerError, "Failed to get keyword")
		return
	}

	WriteJSON(w, http.StatusOK, keyword)
}

// DeleteKeywordHandler handles DELETE /api/keywords/{id}.
// Deletion is a soft disable: the keyword row stays for result history,
// but it is deactivated and dropped from the schedule.
func (h *KeywordHandler) DeleteKeywordHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	keywordID := pathID(r.URL.Path, "/api/keywords/")
	if keywordID == "" {
		WriteError(w, http.StatusBadRequest, "Keyword ID is required")
		return
	}

	if err := h.keywords.SetKeywordActive(ctx, keywordID, false); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Keyword not found")
			return
		}
		h.logger.Error().Err(err).Str("keyword_id", keywordID).Msg("Failed to deactivate keyword")
		WriteError(w, http.StatusInternalServerError, "Failed to deactivate keyword")
		return
	}

	if err := h.scheduler.UnscheduleKeyword(keywordID); err != nil {
		h.logger.Warn().Err(err).Str("keyword_id", keywordID).Msg("Failed to unschedule keyword")
	}

	h.logger.Info().Str("keyword_id", keywordID).Msg("Keyword deactivated")
	WriteSuccess(w, "Keyword deactivated")
}

// TriggerScanHandler handles POST /api/keywords/{id}/scan, the ad-hoc probe
// path. The project's daily scan quota applies the same way as for scheduled
// probes.
func (h *KeywordHandler) TriggerScanHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	keywordID := pathID(strings.TrimSuffix(r.URL.Path, "/scan"), "/api/keywords/")
	if keywordID == "" {
		WriteError(w, http.StatusBadRequest, "Keyword ID is required")
		return
	}

	jobIDs, err := h.scanner.RequestScan(ctx, keywordID)
	if err != nil {
		if strings.Contains(err.Error(), "quota exhausted") {
			WriteJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"status":  "error",
				"error":   err.Error(),
				"job_ids": jobIDs,
			})
			return
		}
		h.logger.Error().Err(err).Str("keyword_id", keywordID).Msg("Failed to request scan")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "started",
		"job_ids": jobIDs,
	})
}

// pathID extracts the first path segment after prefix
func pathID(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return ""
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
