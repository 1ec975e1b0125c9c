package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coltonheil/email-automation/internal/model"
)

// UsageRepository is the append-only ledger behind the rate limiter and the
// usage summary. It satisfies ratelimit.Ledger.
type UsageRepository struct {
	db *pgxpool.Pool
}

func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db}
}

// Record appends one usage row. Failed calls are recorded too; they just
// never count against the caps.
func (r *UsageRepository) Record(ctx context.Context, rec *model.ApiUsageRecord) error {
	var metadata []byte
	if rec.Metadata != nil {
		var err error
		metadata, err = json.Marshal(rec.Metadata)
		if err != nil {
			return err
		}
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO api_usage (service, action, tokens_used, cost_usd, success, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, ts
	`, rec.Service, rec.Action, rec.TokensUsed, rec.CostUSD, rec.Success, metadata).
		Scan(&rec.ID, &rec.Timestamp)
}

// CountSuccessfulCallsSince counts successful generation calls in a window.
func (r *UsageRepository) CountSuccessfulCallsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM api_usage
		WHERE service = 'generation' AND success = TRUE AND ts >= $1
	`, since).Scan(&count)
	return count, err
}

// CountDraftsForSenderSince counts generation-log entries for a sender in a
// window. Drives the per-sender duplicate window.
func (r *UsageRepository) CountDraftsForSenderSince(ctx context.Context, senderEmail string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM draft_generation_log
		WHERE sender_email = $1 AND generated_at >= $2
	`, senderEmail, since).Scan(&count)
	return count, err
}

// RecordDraftGeneration appends a generation-log entry for a sender.
func (r *UsageRepository) RecordDraftGeneration(ctx context.Context, senderEmail, emailID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO draft_generation_log (email_id, sender_email) VALUES ($1, $2)
	`, emailID, senderEmail)
	return err
}

// Summary aggregates the ledger per service since a cutoff.
func (r *UsageRepository) Summary(ctx context.Context, since time.Time) ([]*model.UsageSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT service,
		       COUNT(*),
		       COALESCE(SUM(tokens_used), 0),
		       COALESCE(SUM(cost_usd), 0),
		       COUNT(*) FILTER (WHERE success = FALSE)
		FROM api_usage
		WHERE ts >= $1
		GROUP BY service
		ORDER BY service
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.UsageSummary
	for rows.Next() {
		var s model.UsageSummary
		if err := rows.Scan(&s.Service, &s.Calls, &s.Tokens, &s.CostUSD, &s.Failures); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
