package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/interfaces"
)

// CacheHandler exposes answer cache maintenance operations
type CacheHandler struct {
	cache  interfaces.AnswerCache
	logger arbor.ILogger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache interfaces.AnswerCache, logger arbor.ILogger) *CacheHandler {
	return &CacheHandler{
		cache:  cache,
		logger: logger,
	}
}

// ClearCacheHandler handles POST /api/cache/clear. Subsequent probes re-hit
// the live engines until the cache refills.
func (h *CacheHandler) ClearCacheHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	cleared, err := h.cache.ClearAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to clear answer cache")
		WriteError(w, http.StatusInternalServerError, "Failed to clear answer cache")
		return
	}

	h.logger.Info().Int("entries", cleared).Msg("Answer cache cleared")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"cleared": cleared,
	})
}
