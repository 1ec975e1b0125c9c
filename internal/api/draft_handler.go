package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coltonheil/email-automation/internal/model"
	"github.com/coltonheil/email-automation/internal/repository"
	"github.com/coltonheil/email-automation/internal/service"
)

type DraftHandler struct {
	draftRepo *repository.DraftRepository
	autodraft *service.AutoDraftService
	edits     *service.EditService
	logger    *zap.Logger
}

func NewDraftHandler(
	draftRepo *repository.DraftRepository,
	autodraft *service.AutoDraftService,
	edits *service.EditService,
	logger *zap.Logger,
) *DraftHandler {
	return &DraftHandler{
		draftRepo: draftRepo,
		autodraft: autodraft,
		edits:     edits,
		logger:    logger,
	}
}

type draftResponse struct {
	ID             int        `json:"id"`
	EmailID        string     `json:"email_id"`
	Text           string     `json:"text"`
	ModelUsed      string     `json:"model_used"`
	Status         string     `json:"status"`
	CurrentVersion int        `json:"current_version"`
	TotalVersions  int        `json:"total_versions"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	RejectedAt     *time.Time `json:"rejected_at,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	FeedbackScore  *int       `json:"feedback_score,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toDraftResponse(d *model.Draft) draftResponse {
	return draftResponse{
		ID:             d.ID,
		EmailID:        d.EmailID,
		Text:           d.Text(),
		ModelUsed:      d.ModelUsed,
		Status:         d.Status,
		CurrentVersion: d.CurrentVersion,
		TotalVersions:  d.TotalVersions,
		ApprovedAt:     d.ApprovedAt,
		RejectedAt:     d.RejectedAt,
		SentAt:         d.SentAt,
		FeedbackScore:  d.FeedbackScore,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// respondDraftError maps repository sentinels onto HTTP statuses.
func (h *DraftHandler) respondDraftError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrDraftNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
	case errors.Is(err, repository.ErrVersionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "version not found"})
	case errors.Is(err, repository.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrInvalidRating):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("draft operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "draft operation failed"})
	}
}

func draftID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid draft id"})
		return 0, false
	}
	return id, true
}

// ListPending handles GET /drafts/pending?limit=50
func (h *DraftHandler) ListPending(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	drafts, err := h.draftRepo.ListPending(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list pending drafts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list drafts"})
		return
	}

	out := make([]draftResponse, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, toDraftResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"drafts": out})
}

// Get handles GET /drafts/:id
func (h *DraftHandler) Get(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	d, err := h.draftRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		h.respondDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d))
}

// History handles GET /drafts/:id/history
func (h *DraftHandler) History(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	events, err := h.draftRepo.History(c.Request.Context(), id)
	if err != nil {
		h.respondDraftError(c, err)
		return
	}

	out := make([]gin.H, 0, len(events))
	for _, ev := range events {
		out = append(out, gin.H{
			"action":       ev.Action,
			"performed_by": ev.PerformedBy,
			"performed_at": ev.PerformedAt,
			"notes":        ev.Notes,
			"metadata":     ev.Metadata,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

// Versions handles GET /drafts/:id/versions
func (h *DraftHandler) Versions(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	versions, err := h.draftRepo.ListVersions(c.Request.Context(), id)
	if err != nil {
		h.respondDraftError(c, err)
		return
	}

	out := make([]gin.H, 0, len(versions))
	for _, v := range versions {
		out = append(out, gin.H{
			"version_number": v.VersionNumber,
			"text":           v.Text,
			"model_used":     v.ModelUsed,
			"created_by":     v.CreatedBy,
			"notes":          v.Notes,
			"created_at":     v.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"versions": out})
}

// Approve handles POST /drafts/:id/approve
func (h *DraftHandler) Approve(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	d, err := h.draftRepo.Approve(c.Request.Context(), id, actor(c))
	if err != nil {
		h.respondDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d))
}

// Reject handles POST /drafts/:id/reject
func (h *DraftHandler) Reject(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	d, err := h.draftRepo.Reject(c.Request.Context(), id, actor(c), req.Reason)
	if err != nil {
		h.respondDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d))
}

// Dismiss handles POST /drafts/:id/dismiss
func (h *DraftHandler) Dismiss(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	d, err := h.draftRepo.Dismiss(c.Request.Context(), id, actor(c))
	if err != nil {
		h.respondDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d))
}

// Edit handles POST /drafts/:id/edit
func (h *DraftHandler) Edit(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	d, err := h.draftRepo.Edit(c.Request.Context(), id, req.Text, actor(c))
	if err != nil {
		h.respondDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d))
}

// Regenerate handles POST /drafts/:id/regenerate
func (h *DraftHandler) Regenerate(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	d, err := h.autodraft.Regenerate(c.Request.Context(), id, actor(c))
	if err != nil {
		h.respondDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d))
}

// Rate handles POST /drafts/:id/rate
func (h *DraftHandler) Rate(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	var req struct {
		Score int    `json:"score" binding:"required"`
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score is required"})
		return
	}

	d, err := h.draftRepo.Rate(c.Request.Context(), id, req.Score, req.Notes, actor(c))
	if err != nil {
		h.respondDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d))
}

// MarkSent handles POST /drafts/:id/mark-sent. The user sends the reply from
// their own mail client; this only records that it happened.
func (h *DraftHandler) MarkSent(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	var req struct {
		Via string `json:"via"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Via == "" {
		req.Via = "manual"
	}

	d, err := h.draftRepo.MarkSent(c.Request.Context(), id, actor(c), req.Via)
	if err != nil {
		h.respondDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d))
}

// Restore handles POST /drafts/:id/restore
func (h *DraftHandler) Restore(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	var req struct {
		Version int `json:"version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "version is required"})
		return
	}

	d, err := h.draftRepo.RestoreVersion(c.Request.Context(), id, req.Version, actor(c))
	if err != nil {
		h.respondDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d))
}

// RequestAIEdit handles POST /drafts/:id/ai-edit. Returns the queued job id;
// the worker applies the edit asynchronously.
func (h *DraftHandler) RequestAIEdit(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}
	var req struct {
		Instruction string `json:"instruction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instruction is required"})
		return
	}

	job, err := h.edits.RequestEdit(c.Request.Context(), id, req.Instruction, actor(c))
	if err != nil {
		if errors.Is(err, service.ErrEmptyInstruction) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// GetEditJob handles GET /edit-jobs/:id
func (h *DraftHandler) GetEditJob(c *gin.Context) {
	job, err := h.edits.JobStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrEditJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "edit job not found"})
			return
		}
		h.logger.Error("get edit job failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load edit job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":       job.ID,
		"draft_id":     job.DraftID,
		"status":       job.Status,
		"result_text":  job.ResultText,
		"error":        job.ErrorMsg,
		"created_at":   job.CreatedAt,
		"processed_at": job.ProcessedAt,
	})
}
