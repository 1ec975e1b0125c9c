package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coltonheil/email-automation/internal/repository"
	"github.com/coltonheil/email-automation/internal/scorer"
	"github.com/coltonheil/email-automation/internal/sendercontext"
)

// MaintenanceService hosts the offline subcommands: re-scoring stored
// emails, rebuilding sender profiles from scratch, and retention cleanup.
type MaintenanceService struct {
	emailRepo   *repository.EmailRepository
	profileRepo *repository.SenderProfileRepository
	scorer      *scorer.Scorer
	logger      *zap.Logger
}

func NewMaintenanceService(
	emailRepo *repository.EmailRepository,
	profileRepo *repository.SenderProfileRepository,
	sc *scorer.Scorer,
	logger *zap.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		emailRepo:   emailRepo,
		profileRepo: profileRepo,
		scorer:      sc,
		logger:      logger,
	}
}

// RecalculatePriorities re-scores stored emails with the current scoring
// rules. Useful after changing VIP or keyword lists.
func (s *MaintenanceService) RecalculatePriorities(ctx context.Context, limit int) (int, error) {
	emails, err := s.emailRepo.ListAll(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list emails: %w", err)
	}

	now := time.Now()
	changed := 0
	for _, e := range emails {
		oldScore, oldPriority, oldCategory := e.PriorityScore, e.PriorityCategory, e.Category
		s.scorer.Apply(e, now)
		if e.PriorityScore == oldScore && e.PriorityCategory == oldPriority && e.Category == oldCategory {
			continue
		}
		if err := s.emailRepo.UpdatePriority(ctx, e.ID, e.PriorityScore, e.PriorityCategory, e.Category); err != nil {
			return changed, fmt.Errorf("update priority for %s: %w", e.ID, err)
		}
		changed++
	}

	s.logger.Info("priorities recalculated",
		zap.Int("scanned", len(emails)),
		zap.Int("changed", changed),
	)
	return changed, nil
}

// RebuildSenderProfiles recomputes every profile from stored history.
// Existing profile names survive the rebuild; everything else is derived.
func (s *MaintenanceService) RebuildSenderProfiles(ctx context.Context, historyLimit int) (int, error) {
	addrs, err := s.emailRepo.SenderAddresses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list senders: %w", err)
	}

	rebuilt := 0
	for _, addr := range addrs {
		history, err := s.emailRepo.SenderHistory(ctx, addr, historyLimit)
		if err != nil {
			return rebuilt, fmt.Errorf("history for %s: %w", addr, err)
		}
		lastAt, err := s.emailRepo.LatestFromSender(ctx, addr)
		if err != nil {
			return rebuilt, fmt.Errorf("latest for %s: %w", addr, err)
		}
		total, err := s.emailRepo.CountFromSender(ctx, addr)
		if err != nil {
			return rebuilt, fmt.Errorf("count for %s: %w", addr, err)
		}

		name := ""
		if existing, err := s.profileRepo.FindByAddress(ctx, addr); err == nil && existing != nil {
			name = existing.Name
		}

		profile := sendercontext.BuildProfile(addr, name, total, history, lastAt)
		if err := s.profileRepo.Upsert(ctx, profile); err != nil {
			return rebuilt, fmt.Errorf("upsert profile for %s: %w", addr, err)
		}
		rebuilt++
	}

	s.logger.Info("sender profiles rebuilt", zap.Int("profiles", rebuilt))
	return rebuilt, nil
}

// CleanupOldEmails removes read emails past the retention window. Emails
// with a draft attached are never removed.
func (s *MaintenanceService) CleanupOldEmails(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed, err := s.emailRepo.DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention cleanup: %w", err)
	}
	s.logger.Info("retention cleanup finished",
		zap.Int64("removed", removed),
		zap.Time("cutoff", cutoff),
	)
	return removed, nil
}
