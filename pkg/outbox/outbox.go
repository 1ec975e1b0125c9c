// Package outbox stages domain events in the database so they commit
// atomically with the writes that caused them. A dispatcher drains the
// table into RabbitMQ; entries that keep failing park as failed until an
// operator replays them.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEntryNotFound = errors.New("outbox entry not found")

const (
	statusPending = "pending"
	statusSent    = "sent"
	statusFailed  = "failed"
)

// Retry delay doubles per attempt from the base and tops out at the cap.
const (
	retryBase = 2 * time.Second
	retryCap  = 5 * time.Minute
)

// Event is a payload that knows its routing key. The contracts package
// implements it for every event type.
type Event interface {
	RoutingKey() string
}

// Entry is one staged event row.
type Entry struct {
	ID          int64
	Aggregate   string
	AggregateID *int64
	RoutingKey  string
	Payload     json.RawMessage
	Status      string
	RetryCount  int
	NextRetryAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store reads and writes outbox_events rows.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const entryColumns = `
	id, aggregate_type, aggregate_id, routing_key, payload, status,
	retry_count, next_retry_at, created_at, updated_at
`

// Enqueue stages ev inside tx, so the event commits together with the
// business write it announces.
func (s *Store) Enqueue(ctx context.Context, tx pgx.Tx, aggregate string, aggregateID *int64, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.RoutingKey(), err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, routing_key, payload, status)
		VALUES ($1, $2, $3, $4, 'pending')
	`, aggregate, aggregateID, ev.RoutingKey(), payload)
	if err != nil {
		return fmt.Errorf("enqueue %s event: %w", ev.RoutingKey(), err)
	}
	return nil
}

// Due returns pending entries whose retry time has come, oldest first.
func (s *Store) Due(ctx context.Context, limit int) ([]*Entry, error) {
	return s.list(ctx, `
		SELECT `+entryColumns+`
		FROM outbox_events
		WHERE status = 'pending'
		AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
}

// Failed returns parked entries, newest first.
func (s *Store) Failed(ctx context.Context, limit int) ([]*Entry, error) {
	return s.list(ctx, `
		SELECT `+entryColumns+`
		FROM outbox_events
		WHERE status = 'failed'
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
}

// ByID returns a single entry for replay.
func (s *Store) ByID(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM outbox_events WHERE id = $1`, id)
	e, err := scanEntry(row)
	if err == pgx.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	return e, err
}

// MarkSent retires a delivered entry.
func (s *Store) MarkSent(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE outbox_events SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, statusSent)
	if err != nil {
		return fmt.Errorf("mark entry %d sent: %w", id, err)
	}
	return nil
}

// MarkFailed counts one more failed attempt. The entry stays pending with
// an exponentially later retry until maxAttempts is spent, then parks as
// failed for manual replay.
func (s *Store) MarkFailed(ctx context.Context, id int64, maxAttempts int) error {
	var attempts int
	err := s.db.QueryRow(ctx, `
		SELECT retry_count + 1 FROM outbox_events WHERE id = $1
	`, id).Scan(&attempts)
	if err == pgx.ErrNoRows {
		return ErrEntryNotFound
	}
	if err != nil {
		return fmt.Errorf("read attempts for entry %d: %w", id, err)
	}

	status := statusPending
	var nextRetry *time.Time
	if attempts >= maxAttempts {
		status = statusFailed
	} else {
		at := time.Now().Add(retryDelay(attempts))
		nextRetry = &at
	}

	_, err = s.db.Exec(ctx, `
		UPDATE outbox_events
		SET status = $2, retry_count = $3, next_retry_at = $4, updated_at = NOW()
		WHERE id = $1
	`, id, status, attempts, nextRetry)
	if err != nil {
		return fmt.Errorf("mark entry %d failed: %w", id, err)
	}
	return nil
}

// Reset puts an entry back on the pending queue with a clean retry budget.
func (s *Store) Reset(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE outbox_events
		SET status = $2, retry_count = 0, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1
	`, id, statusPending)
	if err != nil {
		return fmt.Errorf("reset entry %d: %w", id, err)
	}
	return nil
}

// retryDelay returns the wait before the given attempt number is retried.
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := retryBase << (attempt - 1)
	if d <= 0 || d > retryCap {
		return retryCap
	}
	return d
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.Aggregate, &e.AggregateID, &e.RoutingKey, &e.Payload, &e.Status,
		&e.RetryCount, &e.NextRetryAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
