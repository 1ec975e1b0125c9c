package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	hourly     int
	daily      int
	senderHits map[string]int
	recorded   []string
	failWith   error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{senderHits: map[string]int{}}
}

func (f *fakeLedger) CountSuccessfulCallsSince(_ context.Context, since time.Time) (int, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	if now.Sub(since) < 2*time.Hour {
		return f.hourly, nil
	}
	return f.daily, nil
}

func (f *fakeLedger) CountDraftsForSenderSince(_ context.Context, sender string, _ time.Time) (int, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	return f.senderHits[sender], nil
}

func (f *fakeLedger) RecordDraftGeneration(_ context.Context, sender, _ string) error {
	f.recorded = append(f.recorded, sender)
	return nil
}

var now = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

func TestAcquireAllowsWithinCaps(t *testing.T) {
	l := New(Config{}, newFakeLedger())
	assert.NoError(t, l.Acquire(context.Background(), "a@b.example", now))
}

func TestAcquireRunCap(t *testing.T) {
	ledger := newFakeLedger()
	l := New(Config{MaxPerRun: 2}, ledger)

	require.NoError(t, l.RecordCall(context.Background(), "a@b.example", "gmail:1", now))
	require.NoError(t, l.RecordCall(context.Background(), "c@d.example", "gmail:2", now))

	err := l.Acquire(context.Background(), "e@f.example", now)
	var refusal *Refusal
	require.ErrorAs(t, err, &refusal)
	assert.Equal(t, ReasonRunCap, refusal.Reason)
}

func TestAcquireDuplicateWindow(t *testing.T) {
	ledger := newFakeLedger()
	ledger.senderHits["repeat@b.example"] = 1
	l := New(Config{}, ledger)

	err := l.Acquire(context.Background(), "repeat@b.example", now)
	var refusal *Refusal
	require.ErrorAs(t, err, &refusal)
	assert.Equal(t, ReasonDuplicateWindow, refusal.Reason)

	assert.NoError(t, l.Acquire(context.Background(), "fresh@b.example", now),
		"other senders are unaffected")
}

func TestAcquireHourlyCap(t *testing.T) {
	ledger := newFakeLedger()
	ledger.hourly = 20
	ledger.daily = 20
	l := New(Config{}, ledger)

	err := l.Acquire(context.Background(), "a@b.example", now)
	var refusal *Refusal
	require.ErrorAs(t, err, &refusal)
	assert.Equal(t, ReasonHourlyCap, refusal.Reason)
}

func TestAcquireDailyCap(t *testing.T) {
	ledger := newFakeLedger()
	ledger.hourly = 5
	ledger.daily = 100
	l := New(Config{}, ledger)

	err := l.Acquire(context.Background(), "a@b.example", now)
	var refusal *Refusal
	require.ErrorAs(t, err, &refusal)
	assert.Equal(t, ReasonDailyCap, refusal.Reason)
}

func TestAcquireLedgerErrorIsNotRefusal(t *testing.T) {
	ledger := newFakeLedger()
	ledger.failWith = assert.AnError
	l := New(Config{}, ledger)

	err := l.Acquire(context.Background(), "a@b.example", now)
	require.Error(t, err)
	var refusal *Refusal
	assert.False(t, errors.As(err, &refusal))
}

func TestRecordCallAppendsLedger(t *testing.T) {
	ledger := newFakeLedger()
	l := New(Config{}, ledger)

	require.NoError(t, l.RecordCall(context.Background(), "a@b.example", "gmail:7", now))
	assert.Equal(t, []string{"a@b.example"}, ledger.recorded)
	assert.Equal(t, 1, l.RunCount())
}

func TestNextAllowedAtSpacing(t *testing.T) {
	l := New(Config{MinDelay: 2 * time.Second}, newFakeLedger())

	assert.True(t, l.NextAllowedAt().IsZero(), "first call needs no wait")

	require.NoError(t, l.RecordCall(context.Background(), "a@b.example", "gmail:1", now))
	assert.Equal(t, now.Add(2*time.Second), l.NextAllowedAt())

	// spacing already elapsed: no wait
	assert.NoError(t, l.WaitForSlot(context.Background(), now.Add(3*time.Second)))
}

func TestWaitForSlotHonorsCancel(t *testing.T) {
	l := New(Config{MinDelay: time.Minute}, newFakeLedger())
	require.NoError(t, l.RecordCall(context.Background(), "a@b.example", "gmail:1", now))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.WaitForSlot(ctx, now), context.Canceled)
}
