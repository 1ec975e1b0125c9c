package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "github.com/coltonheil/email-automation/contracts/mq"
	"github.com/coltonheil/email-automation/internal/repository"
	"github.com/coltonheil/email-automation/internal/sendercontext"
	"github.com/coltonheil/email-automation/internal/util"
)

// EmailReceivedProfileHandler refreshes a sender's profile whenever the
// pipeline stores a new email from them. Profiles are pure derived data, so
// rebuilding from stored history on every event is both simple and
// idempotent.
type EmailReceivedProfileHandler struct {
	emailRepo   *repository.EmailRepository
	profileRepo *repository.SenderProfileRepository
	deduper     *util.Deduper
	logger      *zap.Logger
}

func NewEmailReceivedProfileHandler(
	emailRepo *repository.EmailRepository,
	profileRepo *repository.SenderProfileRepository,
	deduper *util.Deduper,
	logger *zap.Logger,
) *EmailReceivedProfileHandler {
	return &EmailReceivedProfileHandler{
		emailRepo:   emailRepo,
		profileRepo: profileRepo,
		deduper:     deduper,
		logger:      logger,
	}
}

func (h *EmailReceivedProfileHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.EmailReceivedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal email received payload",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		return nil
	}

	if !h.deduper.AcquireOnce(ctx, "profile-update", p.EmailID) {
		h.logger.Debug("Skipped duplicated email received event",
			zap.String("email_id", p.EmailID),
		)
		return nil
	}

	history, err := h.emailRepo.SenderHistory(ctx, p.SenderEmail, sendercontext.HistoryLimit)
	if err != nil {
		return fmt.Errorf("load sender history: %w", err)
	}
	lastAt, err := h.emailRepo.LatestFromSender(ctx, p.SenderEmail)
	if err != nil {
		return fmt.Errorf("latest from sender: %w", err)
	}
	total, err := h.emailRepo.CountFromSender(ctx, p.SenderEmail)
	if err != nil {
		return fmt.Errorf("count from sender: %w", err)
	}

	name := p.SenderName
	if name == "" {
		if existing, err := h.profileRepo.FindByAddress(ctx, p.SenderEmail); err == nil && existing != nil {
			name = existing.Name
		}
	}

	profile := sendercontext.BuildProfile(p.SenderEmail, name, total, history, lastAt)
	if err := h.profileRepo.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("upsert sender profile: %w", err)
	}

	h.logger.Info("Sender profile refreshed",
		zap.String("sender", p.SenderEmail),
		zap.String("relationship", profile.RelationshipType),
		zap.Int("emails", profile.TotalEmailsReceived),
	)
	return nil
}
