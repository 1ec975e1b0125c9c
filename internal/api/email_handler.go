package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/coltonheil/email-automation/internal/model"
	"github.com/coltonheil/email-automation/internal/repository"
)

type EmailHandler struct {
	emailRepo   *repository.EmailRepository
	profileRepo *repository.SenderProfileRepository
	logger      *zap.Logger
}

func NewEmailHandler(
	emailRepo *repository.EmailRepository,
	profileRepo *repository.SenderProfileRepository,
	logger *zap.Logger,
) *EmailHandler {
	return &EmailHandler{emailRepo: emailRepo, profileRepo: profileRepo, logger: logger}
}

type emailResponse struct {
	ID               string    `json:"id"`
	Provider         string    `json:"provider"`
	AccountID        string    `json:"account_id"`
	Subject          string    `json:"subject"`
	FromEmail        string    `json:"from_email"`
	FromName         string    `json:"from_name"`
	Snippet          string    `json:"snippet"`
	IsUnread         bool      `json:"is_unread"`
	IsImportant      bool      `json:"is_important"`
	HasAttachments   bool      `json:"has_attachments"`
	ReceivedAt       time.Time `json:"received_at"`
	PriorityScore    int       `json:"priority_score"`
	PriorityCategory string    `json:"priority_category"`
}

func toEmailResponse(e *model.Email) emailResponse {
	return emailResponse{
		ID:               e.ID,
		Provider:         e.Provider,
		AccountID:        e.AccountID,
		Subject:          e.Subject,
		FromEmail:        e.FromEmail,
		FromName:         e.FromName,
		Snippet:          e.Snippet,
		IsUnread:         e.IsUnread,
		IsImportant:      e.IsImportant,
		HasAttachments:   e.HasAttachments,
		ReceivedAt:       e.ReceivedAt,
		PriorityScore:    e.PriorityScore,
		PriorityCategory: e.PriorityCategory,
	}
}

// ListUrgent handles GET /emails/urgent?limit=20
func (h *EmailHandler) ListUrgent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	emails, err := h.emailRepo.ListUrgentUnread(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list urgent emails failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list emails"})
		return
	}

	out := make([]emailResponse, 0, len(emails))
	for _, e := range emails {
		out = append(out, toEmailResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{"emails": out})
}

// Get handles GET /emails/:id
func (h *EmailHandler) Get(c *gin.Context) {
	e, err := h.emailRepo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
			return
		}
		h.logger.Error("get email failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load email"})
		return
	}

	resp := toEmailResponse(e)
	c.JSON(http.StatusOK, gin.H{
		"email": resp,
		"body":  e.Body,
	})
}

// MarkRead handles POST /emails/:id/read
func (h *EmailHandler) MarkRead(c *gin.Context) {
	if err := h.emailRepo.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		h.logger.Error("mark read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark email read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetSenderProfile handles GET /senders/:address
func (h *EmailHandler) GetSenderProfile(c *gin.Context) {
	p, err := h.profileRepo.FindByAddress(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.logger.Error("get sender profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sender profile not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email_address":         p.EmailAddress,
		"name":                  p.Name,
		"total_emails_received": p.TotalEmailsReceived,
		"last_email_at":         p.LastEmailAt,
		"avg_priority_score":    p.AvgPriorityScore,
		"common_topics":         p.CommonTopics,
		"relationship_type":     p.RelationshipType,
		"response_pattern":      p.ResponsePattern,
		"writing_style_notes":   p.WritingStyleNotes,
	})
}
