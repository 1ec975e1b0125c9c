package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coltonheil/email-automation/internal/repository"
)

type UsageHandler struct {
	usageRepo *repository.UsageRepository
	syncRepo  *repository.SyncLogRepository
	logger    *zap.Logger
}

func NewUsageHandler(
	usageRepo *repository.UsageRepository,
	syncRepo *repository.SyncLogRepository,
	logger *zap.Logger,
) *UsageHandler {
	return &UsageHandler{usageRepo: usageRepo, syncRepo: syncRepo, logger: logger}
}

// Summary handles GET /usage/summary?hours=24
func (h *UsageHandler) Summary(c *gin.Context) {
	hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if err != nil || hours <= 0 {
		hours = 24
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	summaries, err := h.usageRepo.Summary(c.Request.Context(), since)
	if err != nil {
		h.logger.Error("usage summary failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window_hours": hours,
		"services":     summaries,
	})
}

// SyncHistory handles GET /usage/syncs?limit=20
func (h *UsageHandler) SyncHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	logs, err := h.syncRepo.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("sync history failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sync history"})
		return
	}

	out := make([]gin.H, 0, len(logs))
	for _, l := range logs {
		out = append(out, gin.H{
			"account_id":        l.AccountID,
			"sync_completed_at": l.SyncCompletedAt,
			"emails_fetched":    l.EmailsFetched,
			"new_emails":        l.NewEmails,
			"status":            l.Status,
			"error_message":     l.ErrorMessage,
		})
	}
	c.JSON(http.StatusOK, gin.H{"syncs": out})
}
