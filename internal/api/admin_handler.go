package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coltonheil/email-automation/pkg/outbox"
)

// AdminHandler exposes the outbox replay surface to operators.
type AdminHandler struct {
	replay *outbox.ReplayService
	logger *zap.Logger
}

func NewAdminHandler(replay *outbox.ReplayService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{replay: replay, logger: logger}
}

// ReplayOutboxEvent re-sends one outbox entry.
// POST /admin/outbox/replay?id=42
func (h *AdminHandler) ReplayOutboxEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid id parameter"})
		return
	}

	if err := h.replay.Replay(c.Request.Context(), id); err != nil {
		if errors.Is(err, outbox.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "outbox entry not found"})
			return
		}
		h.logger.Error("replay outbox entry failed", zap.Int64("entry_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to replay entry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "replayed", "entry_id": id})
}

// ReplayFailedEvents re-sends every parked outbox entry.
// POST /admin/outbox/replay-failed?limit=100
func (h *AdminHandler) ReplayFailedEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	sent, err := h.replay.ReplayFailed(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("replay failed entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to replay entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed", "replayed": sent, "limit": limit})
}
