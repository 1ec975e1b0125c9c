package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coltonheil/email-automation/pkg/rbac"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *AuthHandler,
	emailHandler *EmailHandler,
	draftHandler *DraftHandler,
	usageHandler *UsageHandler,
	adminHandler *AdminHandler,
	jwtSecret string,
	db *pgxpool.Pool,
) *Router {
	r := gin.Default()
	r.Use(MetricsMiddleware())

	// 健康检查放在最前面
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/emails/urgent", RequirePermission(rbac.PermissionReadEmail), emailHandler.ListUrgent)
		auth.GET("/emails/:id", RequirePermission(rbac.PermissionReadEmail), emailHandler.Get)
		auth.POST("/emails/:id/read", RequirePermission(rbac.PermissionReadEmail), emailHandler.MarkRead)
		auth.GET("/senders/:address", RequirePermission(rbac.PermissionReadEmail), emailHandler.GetSenderProfile)

		auth.GET("/drafts/pending", RequirePermission(rbac.PermissionReadDraft), draftHandler.ListPending)
		auth.GET("/drafts/:id", RequirePermission(rbac.PermissionReadDraft), draftHandler.Get)
		auth.GET("/drafts/:id/history", RequirePermission(rbac.PermissionReadDraft), draftHandler.History)
		auth.GET("/drafts/:id/versions", RequirePermission(rbac.PermissionReadDraft), draftHandler.Versions)

		auth.POST("/drafts/:id/approve", RequirePermission(rbac.PermissionApproveDraft), draftHandler.Approve)
		auth.POST("/drafts/:id/reject", RequirePermission(rbac.PermissionRejectDraft), draftHandler.Reject)
		auth.POST("/drafts/:id/dismiss", RequirePermission(rbac.PermissionDismissDraft), draftHandler.Dismiss)
		auth.POST("/drafts/:id/edit", RequirePermission(rbac.PermissionEditDraft), draftHandler.Edit)
		auth.POST("/drafts/:id/regenerate", RequirePermission(rbac.PermissionEditDraft), draftHandler.Regenerate)
		auth.POST("/drafts/:id/rate", RequirePermission(rbac.PermissionRateDraft), draftHandler.Rate)
		auth.POST("/drafts/:id/mark-sent", RequirePermission(rbac.PermissionApproveDraft), draftHandler.MarkSent)
		auth.POST("/drafts/:id/restore", RequirePermission(rbac.PermissionRestoreDraft), draftHandler.Restore)

		auth.POST("/drafts/:id/ai-edit", RequirePermission(rbac.PermissionEditDraft), draftHandler.RequestAIEdit)
		auth.GET("/edit-jobs/:id", RequirePermission(rbac.PermissionReadDraft), draftHandler.GetEditJob)

		auth.GET("/usage/summary", RequirePermission(rbac.PermissionReadUsage), usageHandler.Summary)
		auth.GET("/usage/syncs", RequirePermission(rbac.PermissionReadUsage), usageHandler.SyncHistory)

		auth.POST("/admin/outbox/replay", RequirePermission(rbac.PermissionReplayOutbox), adminHandler.ReplayOutboxEvent)
		auth.POST("/admin/outbox/replay-failed", RequirePermission(rbac.PermissionReplayOutbox), adminHandler.ReplayFailedEvents)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
