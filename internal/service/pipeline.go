package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/coltonheil/email-automation/config"
	mqcontracts "github.com/coltonheil/email-automation/contracts/mq"
	"github.com/coltonheil/email-automation/internal/fetcher"
	"github.com/coltonheil/email-automation/internal/model"
	"github.com/coltonheil/email-automation/internal/normalizer"
	"github.com/coltonheil/email-automation/internal/repository"
	"github.com/coltonheil/email-automation/internal/scorer"
	"github.com/coltonheil/email-automation/pkg/metrics"
	"github.com/coltonheil/email-automation/pkg/mq"
)

// PipelineService drives one batch run: fetch, normalize, dedup, score,
// persist, then hand each new email to the draft stage. One Run is one run
// boundary for the per-run generation cap.
type PipelineService struct {
	fetcher   fetcher.Fetcher
	scorer    *scorer.Scorer
	emailRepo *repository.EmailRepository
	syncRepo  *repository.SyncLogRepository
	autodraft *AutoDraftService
	publisher *mq.Publisher
	accounts  []config.AccountConfig
	cfg       config.PipelineConfig
	logger    *zap.Logger
}

func NewPipelineService(
	f fetcher.Fetcher,
	sc *scorer.Scorer,
	emailRepo *repository.EmailRepository,
	syncRepo *repository.SyncLogRepository,
	autodraft *AutoDraftService,
	publisher *mq.Publisher,
	accounts []config.AccountConfig,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) *PipelineService {
	return &PipelineService{
		fetcher:   f,
		scorer:    sc,
		emailRepo: emailRepo,
		syncRepo:  syncRepo,
		autodraft: autodraft,
		publisher: publisher,
		accounts:  accounts,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run processes every configured account once. A failing email or account
// never aborts the run; everything ends up counted in the summary.
func (s *PipelineService) Run(ctx context.Context, mode string) (*model.RunSummary, error) {
	summary := &model.RunSummary{RateLimited: map[string]int{}}

	s.retryFailedDrafts(ctx, summary)

	for _, account := range s.accounts {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		s.runAccount(ctx, account, mode, summary)
	}

	s.logger.Info("pipeline run finished",
		zap.Int("fetched", summary.Fetched),
		zap.Int("new", summary.New),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("invalid", summary.Invalid),
		zap.Int("draft_retries", summary.DraftRetries),
		zap.Int("drafts_created", summary.DraftsCreated),
		zap.Int("filtered", summary.Filtered),
		zap.Int("failed", summary.Failed),
		zap.Any("rate_limited", summary.RateLimited),
	)
	return summary, nil
}

// retryFailedDrafts gives emails whose last generation attempt failed
// another pass before any new mail is fetched. The flag survives errors and
// rate-limit refusals, and clears once a draft lands or the filter decides
// no draft is wanted.
func (s *PipelineService) retryFailedDrafts(ctx context.Context, summary *model.RunSummary) {
	emails, err := s.emailRepo.ListDraftFailed(ctx, s.cfg.FetchLimit)
	if err != nil {
		s.logger.Error("list draft retries", zap.Error(err))
		return
	}

	for _, email := range emails {
		if ctx.Err() != nil {
			return
		}
		summary.DraftRetries++

		outcome, err := s.autodraft.Consider(ctx, email)
		if err != nil {
			summary.Failed++
			s.logger.Error("draft retry failed", zap.String("email_id", email.ID), zap.Error(err))
			continue
		}
		switch {
		case outcome.Drafted:
			summary.DraftsCreated++
		case outcome.RateLimitReason != "":
			summary.RateLimited[outcome.RateLimitReason]++
		case outcome.SkipReason != "":
			summary.Filtered++
		}
		if !retrySettled(outcome) {
			continue
		}
		if err := s.emailRepo.SetDraftFailed(ctx, email.ID, false); err != nil {
			s.logger.Error("clear draft failure", zap.String("email_id", email.ID), zap.Error(err))
		}
	}
}

// retrySettled reports whether a retry outcome settles the email: a draft
// landed or the filter decided no draft is wanted. Rate-limit refusals do
// not settle, the next run tries again.
func retrySettled(o *Outcome) bool {
	return o.Drafted || o.SkipReason != ""
}

func (s *PipelineService) runAccount(ctx context.Context, account config.AccountConfig, mode string, summary *model.RunSummary) {
	log := s.logger.With(
		zap.String("account", account.ID),
		zap.String("provider", account.Provider),
	)

	raws, err := s.fetcher.Fetch(ctx, fetcher.Request{
		AccountID: account.ID,
		Provider:  account.Provider,
		Mode:      mode,
		Limit:     s.cfg.FetchLimit,
	})
	if err != nil {
		var transient *fetcher.TransientProviderError
		if errors.As(err, &transient) {
			log.Warn("provider fetch failed, will retry next run", zap.Error(err))
		} else {
			log.Error("provider fetch failed", zap.Error(err))
		}
		s.logSync(ctx, account.ID, 0, 0, "failed", err.Error())
		return
	}

	fetched := len(raws)
	newEmails := 0
	summary.Fetched += fetched

	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return
		}

		email, err := normalizer.Normalize(account.Provider, account.ID, raw)
		if err != nil {
			var verr *normalizer.ValidationError
			if errors.As(err, &verr) {
				summary.Invalid++
				metrics.IncrementEmailProcessed(account.ID, "invalid")
				log.Warn("dropping invalid message",
					zap.String("field", verr.Field),
					zap.String("reason", verr.Reason),
				)
				continue
			}
			summary.Failed++
			metrics.IncrementEmailProcessed(account.ID, "failed")
			log.Error("normalize failed", zap.Error(err))
			continue
		}

		s.scorer.Apply(email, time.Now())

		inserted, err := s.emailRepo.Insert(ctx, email)
		if err != nil {
			summary.Failed++
			metrics.IncrementEmailProcessed(account.ID, "failed")
			log.Error("store email failed", zap.String("email_id", email.ID), zap.Error(err))
			continue
		}
		if !inserted {
			summary.Duplicates++
			metrics.IncrementEmailProcessed(account.ID, "duplicate")
			continue
		}

		summary.New++
		newEmails++
		metrics.IncrementEmailProcessed(account.ID, "new")
		s.publishReceived(email, log)

		outcome, err := s.autodraft.Consider(ctx, email)
		if err != nil {
			summary.Failed++
			log.Error("draft stage failed", zap.String("email_id", email.ID), zap.Error(err))
			// flag the email so the next run picks it up again
			if ferr := s.emailRepo.SetDraftFailed(ctx, email.ID, true); ferr != nil {
				log.Error("flag draft failure", zap.String("email_id", email.ID), zap.Error(ferr))
			}
			continue
		}
		switch {
		case outcome.Drafted:
			summary.DraftsCreated++
		case outcome.RateLimitReason != "":
			summary.RateLimited[outcome.RateLimitReason]++
		case outcome.SkipReason != "":
			summary.Filtered++
		}
	}

	s.logSync(ctx, account.ID, fetched, newEmails, "ok", "")
}

// publishReceived tells the worker a new email landed so it can refresh the
// sender profile. Best effort: the pipeline does not depend on the broker.
func (s *PipelineService) publishReceived(e *model.Email, log *zap.Logger) {
	if s.publisher == nil {
		return
	}
	payload := mqcontracts.EmailReceivedPayload{
		EmailID:       e.ID,
		AccountID:     e.AccountID,
		SenderEmail:   e.FromEmail,
		SenderName:    e.FromName,
		Subject:       e.Subject,
		PriorityScore: e.PriorityScore,
		ReceivedAt:    e.ReceivedAt,
	}
	if err := s.publisher.Publish(payload); err != nil {
		log.Warn("failed to publish email.received", zap.String("email_id", e.ID), zap.Error(err))
	}
}

func (s *PipelineService) logSync(ctx context.Context, accountID string, fetched, newEmails int, status, errMsg string) {
	entry := &model.SyncLog{
		AccountID:     accountID,
		EmailsFetched: fetched,
		NewEmails:     newEmails,
		Status:        status,
		ErrorMessage:  errMsg,
	}
	if err := s.syncRepo.Insert(ctx, entry); err != nil {
		s.logger.Error("failed to write sync log", zap.String("account", accountID), zap.Error(err))
	}
}
