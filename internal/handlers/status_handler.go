package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
	"github.com/brandlens/brandlens/internal/queue"
)

// StatusHandler reports pipeline health: queue depths, job counts and the
// live schedule.
type StatusHandler struct {
	scans     interfaces.ScanStorage
	queues    interfaces.QueueManager
	scheduler interfaces.SchedulerService
	startedAt time.Time
	logger    arbor.ILogger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(scans interfaces.ScanStorage, queues interfaces.QueueManager, scheduler interfaces.SchedulerService, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		scans:     scans,
		queues:    queues,
		scheduler: scheduler,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	ctx := r.Context()

	jobCounts := make(map[string]int)
	for _, status := range []models.ScanJobStatus{
		models.ScanStatusPending,
		models.ScanStatusProcessing,
		models.ScanStatusCompleted,
		models.ScanStatusFailed,
		models.ScanStatusCancelled,
	} {
		count, err := h.scans.CountJobsByStatus(ctx, status)
		if err != nil {
			h.logger.Warn().Err(err).Str("status", string(status)).Msg("Failed to count jobs")
			continue
		}
		jobCounts[string(status)] = count
	}

	queueDepths := make(map[string]int)
	for _, name := range []string{queue.ScanQueue, queue.EvaluateQueue} {
		depth, err := h.queues.Depth(ctx, name)
		if err != nil {
			h.logger.Warn().Err(err).Str("queue", name).Msg("Failed to read queue depth")
			continue
		}
		queueDepths[name] = depth
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":        common.GetVersion(),
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"jobs":           jobCounts,
		"queues":         queueDepths,
		"scheduler":      h.scheduler.Stats(),
	})
}
