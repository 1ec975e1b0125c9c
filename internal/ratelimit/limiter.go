// Package ratelimit gates calls to the generation backend. Window counters
// come from the persistent usage ledger rather than process memory, so the
// caps hold across restarts and across concurrent processes.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Refusal reasons.
const (
	ReasonRunCap          = "run_cap_exceeded"
	ReasonDuplicateWindow = "duplicate_window"
	ReasonHourlyCap       = "hourly_cap_exceeded"
	ReasonDailyCap        = "daily_cap_exceeded"
)

// Refusal is returned when a generation call is denied. It is a typed error
// so callers can record the reason and continue the batch.
type Refusal struct {
	Reason string
	Detail string
}

func (r *Refusal) Error() string {
	return fmt.Sprintf("generation refused: %s (%s)", r.Reason, r.Detail)
}

// Ledger is the persistent view the limiter consults. Counts must reflect
// successful calls only; failed calls do not consume budget.
type Ledger interface {
	CountSuccessfulCallsSince(ctx context.Context, since time.Time) (int, error)
	CountDraftsForSenderSince(ctx context.Context, senderEmail string, since time.Time) (int, error)
	RecordDraftGeneration(ctx context.Context, senderEmail, emailID string) error
}

// Config carries the caps. Zero values are replaced with the documented
// defaults.
type Config struct {
	MaxPerRun       int
	MinDelay        time.Duration
	DuplicateWindow time.Duration
	MaxHourlyCalls  int
	MaxDailyCalls   int
}

type Limiter struct {
	cfg    Config
	ledger Ledger

	mu       sync.Mutex
	runCount int
	lastCall time.Time
}

func New(cfg Config, ledger Ledger) *Limiter {
	if cfg.MaxPerRun == 0 {
		cfg.MaxPerRun = 10
	}
	if cfg.MinDelay == 0 {
		cfg.MinDelay = 2 * time.Second
	}
	if cfg.DuplicateWindow == 0 {
		cfg.DuplicateWindow = 30 * time.Minute
	}
	if cfg.MaxHourlyCalls == 0 {
		cfg.MaxHourlyCalls = 20
	}
	if cfg.MaxDailyCalls == 0 {
		cfg.MaxDailyCalls = 100
	}
	return &Limiter{cfg: cfg, ledger: ledger}
}

// Acquire checks every cap for one prospective call. A denied call returns a
// *Refusal; any other error is a ledger failure.
func (l *Limiter) Acquire(ctx context.Context, senderEmail string, now time.Time) error {
	l.mu.Lock()
	runCount := l.runCount
	l.mu.Unlock()

	if runCount >= l.cfg.MaxPerRun {
		return &Refusal{
			Reason: ReasonRunCap,
			Detail: fmt.Sprintf("%d drafts this run", runCount),
		}
	}

	dupes, err := l.ledger.CountDraftsForSenderSince(ctx, senderEmail, now.Add(-l.cfg.DuplicateWindow))
	if err != nil {
		return fmt.Errorf("count recent drafts: %w", err)
	}
	if dupes > 0 {
		return &Refusal{
			Reason: ReasonDuplicateWindow,
			Detail: fmt.Sprintf("already drafted for %s within %s", senderEmail, l.cfg.DuplicateWindow),
		}
	}

	hourly, err := l.ledger.CountSuccessfulCallsSince(ctx, now.Add(-time.Hour))
	if err != nil {
		return fmt.Errorf("count hourly calls: %w", err)
	}
	if hourly >= l.cfg.MaxHourlyCalls {
		return &Refusal{
			Reason: ReasonHourlyCap,
			Detail: fmt.Sprintf("%d calls in the last hour", hourly),
		}
	}

	daily, err := l.ledger.CountSuccessfulCallsSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("count daily calls: %w", err)
	}
	if daily >= l.cfg.MaxDailyCalls {
		return &Refusal{
			Reason: ReasonDailyCap,
			Detail: fmt.Sprintf("%d calls in the last 24h", daily),
		}
	}

	return nil
}

// NextAllowedAt returns the earliest instant the next call may start, given
// the minimum spacing between calls within a run.
func (l *Limiter) NextAllowedAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastCall.IsZero() {
		return time.Time{}
	}
	return l.lastCall.Add(l.cfg.MinDelay)
}

// WaitForSlot blocks until the minimum spacing has elapsed or the context is
// cancelled.
func (l *Limiter) WaitForSlot(ctx context.Context, now time.Time) error {
	next := l.NextAllowedAt()
	if !next.After(now) {
		return nil
	}

	timer := time.NewTimer(next.Sub(now))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RecordCall consumes one run slot and appends the sender to the duplicate
// ledger. Call it only after a successful generation.
func (l *Limiter) RecordCall(ctx context.Context, senderEmail, emailID string, now time.Time) error {
	l.mu.Lock()
	l.runCount++
	l.lastCall = now
	l.mu.Unlock()

	if err := l.ledger.RecordDraftGeneration(ctx, senderEmail, emailID); err != nil {
		return fmt.Errorf("record draft generation: %w", err)
	}
	return nil
}

// RunCount reports how many calls this run has consumed.
func (l *Limiter) RunCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runCount
}
