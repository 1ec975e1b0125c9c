package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coltonheil/email-automation/internal/filter"
	"github.com/coltonheil/email-automation/internal/generation"
	"github.com/coltonheil/email-automation/internal/model"
	"github.com/coltonheil/email-automation/internal/ratelimit"
	"github.com/coltonheil/email-automation/internal/repository"
	"github.com/coltonheil/email-automation/internal/sendercontext"
	"github.com/coltonheil/email-automation/pkg/metrics"
)

// Outcome reports what happened to one email in the draft stage.
type Outcome struct {
	Drafted         bool
	SkipReason      string // set when the filter declined
	RateLimitReason string // set when the limiter refused
	Draft           *model.Draft
}

// AutoDraftService runs the draft side of the pipeline for one email:
// sender context, filter decision, rate-limit gate, generation, storage.
type AutoDraftService struct {
	emailRepo   *repository.EmailRepository
	profileRepo *repository.SenderProfileRepository
	draftRepo   *repository.DraftRepository
	usageRepo   *repository.UsageRepository
	filter      *filter.Filter
	limiter     *ratelimit.Limiter
	generator   *generation.Client
	logger      *zap.Logger
}

func NewAutoDraftService(
	emailRepo *repository.EmailRepository,
	profileRepo *repository.SenderProfileRepository,
	draftRepo *repository.DraftRepository,
	usageRepo *repository.UsageRepository,
	f *filter.Filter,
	limiter *ratelimit.Limiter,
	generator *generation.Client,
	logger *zap.Logger,
) *AutoDraftService {
	return &AutoDraftService{
		emailRepo:   emailRepo,
		profileRepo: profileRepo,
		draftRepo:   draftRepo,
		usageRepo:   usageRepo,
		filter:      f,
		limiter:     limiter,
		generator:   generator,
		logger:      logger,
	}
}

// Consider decides whether an email deserves a draft and generates one if so.
// A declined or refused email is a normal outcome; only infrastructure and
// backend failures come back as errors.
func (s *AutoDraftService) Consider(ctx context.Context, e *model.Email) (*Outcome, error) {
	history, err := s.emailRepo.SenderHistory(ctx, e.FromEmail, sendercontext.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load sender history: %w", err)
	}
	profile, err := s.profileRepo.FindByAddress(ctx, e.FromEmail)
	if err != nil {
		return nil, fmt.Errorf("load sender profile: %w", err)
	}

	sctx := sendercontext.Build(e, profile, history)

	decision := s.filter.Evaluate(e, sctx.RelationshipType)
	if !decision.Draft {
		s.logger.Debug("draft declined by filter",
			zap.String("email_id", e.ID),
			zap.String("reason", decision.Reason),
		)
		return &Outcome{SkipReason: decision.Reason}, nil
	}

	now := time.Now()
	if err := s.limiter.Acquire(ctx, e.FromEmail, now); err != nil {
		var refusal *ratelimit.Refusal
		if errors.As(err, &refusal) {
			metrics.IncrementRateLimitRefusal(refusal.Reason)
			s.logger.Info("draft refused by rate limiter",
				zap.String("email_id", e.ID),
				zap.String("reason", refusal.Reason),
			)
			return &Outcome{RateLimitReason: refusal.Reason}, nil
		}
		return nil, err
	}

	// 保持调用间隔，避免打爆生成服务
	if err := s.limiter.WaitForSlot(ctx, time.Now()); err != nil {
		return nil, err
	}

	prompt := generation.BuildPrompt(sctx, "", "")
	result, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		metrics.IncrementDraftGenerated(s.generator.Model(), "failed")
		s.recordUsage(ctx, e, nil, err)
		return nil, fmt.Errorf("generate draft for %s: %w", e.ID, err)
	}

	draft := &model.Draft{
		EmailID:   e.ID,
		DraftText: result.Text,
		ModelUsed: result.Model,
	}
	if err := s.draftRepo.Create(ctx, draft); err != nil {
		if errors.Is(err, repository.ErrDraftExists) {
			// 同一封邮件已经有草稿了，当作跳过处理
			return &Outcome{SkipReason: "draft already exists"}, nil
		}
		return nil, fmt.Errorf("store draft for %s: %w", e.ID, err)
	}

	s.recordUsage(ctx, e, result, nil)
	if err := s.limiter.RecordCall(ctx, e.FromEmail, e.ID, time.Now()); err != nil {
		// 草稿已经落库，只记录账本失败
		s.logger.Error("failed to record generation call", zap.Error(err))
	}

	metrics.IncrementDraftGenerated(result.Model, "success")
	s.logger.Info("draft generated",
		zap.String("email_id", e.ID),
		zap.Int("draft_id", draft.ID),
		zap.String("model", result.Model),
		zap.Duration("latency", result.Latency),
	)
	return &Outcome{Drafted: true, Draft: draft}, nil
}

// Regenerate produces a fresh generation for an existing draft. The current
// text is snapshotted as a version before the new one replaces it. User
// triggered, so the batch rate limiter does not apply; usage is still
// recorded.
func (s *AutoDraftService) Regenerate(ctx context.Context, draftID int, by string) (*model.Draft, error) {
	draft, err := s.draftRepo.FindByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Terminal() {
		return nil, fmt.Errorf("draft %d is %s: %w", draftID, draft.Status, repository.ErrInvalidTransition)
	}

	e, err := s.emailRepo.FindByID(ctx, draft.EmailID)
	if err != nil {
		return nil, fmt.Errorf("load email %s: %w", draft.EmailID, err)
	}

	history, err := s.emailRepo.SenderHistory(ctx, e.FromEmail, sendercontext.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load sender history: %w", err)
	}
	profile, err := s.profileRepo.FindByAddress(ctx, e.FromEmail)
	if err != nil {
		return nil, fmt.Errorf("load sender profile: %w", err)
	}

	prompt := generation.BuildPrompt(sendercontext.Build(e, profile, history), "", "")
	result, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		metrics.IncrementDraftGenerated(s.generator.Model(), "failed")
		s.recordUsage(ctx, e, nil, err)
		return nil, fmt.Errorf("regenerate draft %d: %w", draftID, err)
	}

	updated, err := s.draftRepo.Regenerate(ctx, draftID, result.Text, result.Model, by)
	if err != nil {
		return nil, err
	}

	s.recordUsage(ctx, e, result, nil)
	metrics.IncrementDraftGenerated(result.Model, "success")
	return updated, nil
}

// recordUsage appends one ledger row per generation attempt, success or not.
func (s *AutoDraftService) recordUsage(ctx context.Context, e *model.Email, result *generation.Result, callErr error) {
	rec := &model.ApiUsageRecord{
		Service: "generation",
		Action:  "draft",
		Success: callErr == nil,
		Metadata: map[string]any{
			"email_id": e.ID,
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
	if err := s.usageRepo.Record(ctx, rec); err != nil {
		s.logger.Error("failed to record api usage", zap.Error(err))
	}
}
