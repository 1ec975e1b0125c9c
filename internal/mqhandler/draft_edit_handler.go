package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "github.com/coltonheil/email-automation/contracts/mq"
	"github.com/coltonheil/email-automation/internal/generation"
	"github.com/coltonheil/email-automation/internal/model"
	"github.com/coltonheil/email-automation/internal/repository"
	"github.com/coltonheil/email-automation/internal/util"
)

// DraftEditRequestedHandler applies an AI edit instruction to a draft. The
// outcome always lands in the job row, so the API can serve polling clients
// even when the edit itself failed.
type DraftEditRequestedHandler struct {
	jobRepo   *repository.EditJobRepository
	draftRepo *repository.DraftRepository
	usageRepo *repository.UsageRepository
	generator *generation.Client
	deduper   *util.Deduper
	logger    *zap.Logger
}

func NewDraftEditRequestedHandler(
	jobRepo *repository.EditJobRepository,
	draftRepo *repository.DraftRepository,
	usageRepo *repository.UsageRepository,
	generator *generation.Client,
	deduper *util.Deduper,
	logger *zap.Logger,
) *DraftEditRequestedHandler {
	return &DraftEditRequestedHandler{
		jobRepo:   jobRepo,
		draftRepo: draftRepo,
		usageRepo: usageRepo,
		generator: generator,
		deduper:   deduper,
		logger:    logger,
	}
}

// Handle processes one draft.edit.requested message. Idempotent: a
// redelivered message finds the job already claimed and acks without work.
// Returned errors are retryable infrastructure failures only.
func (h *DraftEditRequestedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.DraftEditRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// 消息坏了，重试也没用，直接 ack 掉
		h.logger.Error("Failed to unmarshal draft edit payload",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		return nil
	}

	log := h.logger.With(
		zap.String("job_id", p.JobID),
		zap.Int("draft_id", p.DraftID),
	)

	// Redis 去重：减少重复投递造成的无用功
	if !h.deduper.AcquireOnce(ctx, "draft-edit", p.JobID) {
		log.Info("Skipped duplicated draft edit event")
		return nil
	}

	claimed, err := h.jobRepo.ClaimPending(ctx, p.JobID)
	if err != nil {
		return fmt.Errorf("claim edit job: %w", err)
	}
	if !claimed {
		// 已经被处理过（或正在处理），重复投递直接 ack
		log.Debug("Edit job already claimed, skipping")
		return nil
	}

	draft, err := h.draftRepo.FindByID(ctx, p.DraftID)
	if err != nil {
		if errors.Is(err, repository.ErrDraftNotFound) {
			return h.fail(ctx, p.JobID, "draft not found", log)
		}
		return fmt.Errorf("load draft: %w", err)
	}
	if draft.Terminal() {
		return h.fail(ctx, p.JobID, fmt.Sprintf("draft is %s", draft.Status), log)
	}

	prompt := generation.BuildEditPrompt(draft.Text(), p.Instruction)
	result, err := h.generator.Complete(ctx, prompt)
	if err != nil {
		// 客户端内部已经重试过了，失败结果直接落到任务行
		h.recordUsage(ctx, p.DraftID, nil, err)
		return h.fail(ctx, p.JobID, err.Error(), log)
	}

	if _, err := h.draftRepo.Edit(ctx, p.DraftID, result.Text, model.ActorAIEdit); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return h.fail(ctx, p.JobID, "draft no longer editable", log)
		}
		return fmt.Errorf("apply edit: %w", err)
	}

	h.recordUsage(ctx, p.DraftID, result, nil)

	if err := h.jobRepo.Complete(ctx, p.JobID, result.Text); err != nil {
		return fmt.Errorf("complete edit job: %w", err)
	}

	log.Info("AI edit applied",
		zap.String("model", result.Model),
		zap.Duration("latency", result.Latency),
	)
	return nil
}

func (h *DraftEditRequestedHandler) fail(ctx context.Context, jobID, reason string, log *zap.Logger) error {
	log.Warn("Edit job failed", zap.String("reason", reason))
	if err := h.jobRepo.Fail(ctx, jobID, reason); err != nil {
		return fmt.Errorf("mark edit job failed: %w", err)
	}
	return nil
}

func (h *DraftEditRequestedHandler) recordUsage(ctx context.Context, draftID int, result *generation.Result, callErr error) {
	rec := &model.ApiUsageRecord{
		Service: "generation",
		Action:  "edit",
		Success: callErr == nil,
		Metadata: map[string]any{
			"draft_id": draftID,
		},
	}
	if result != nil {
		rec.TokensUsed = result.PromptTokens + result.CompletionTokens
		rec.CostUSD = result.CostUSD
		rec.Metadata["model"] = result.Model
	}
	if callErr != nil {
		rec.Metadata["error"] = callErr.Error()
	}
	if err := h.usageRepo.Record(ctx, rec); err != nil {
		h.logger.Error("failed to record api usage", zap.Error(err))
	}
}
