package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coltonheil/email-automation/internal/model"
)

type SyncLogRepository struct {
	db *pgxpool.Pool
}

func NewSyncLogRepository(db *pgxpool.Pool) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Insert records the outcome of one fetch pass over one account.
func (r *SyncLogRepository) Insert(ctx context.Context, l *model.SyncLog) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO sync_log (account_id, emails_fetched, new_emails, status, error_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, sync_completed_at
	`, l.AccountID, l.EmailsFetched, l.NewEmails, l.Status, l.ErrorMessage).
		Scan(&l.ID, &l.SyncCompletedAt)
}

// Recent returns the latest sync entries across accounts.
func (r *SyncLogRepository) Recent(ctx context.Context, limit int) ([]*model.SyncLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, sync_completed_at, emails_fetched, new_emails, status, error_message
		FROM sync_log
		ORDER BY sync_completed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*model.SyncLog
	for rows.Next() {
		var l model.SyncLog
		if err := rows.Scan(&l.ID, &l.AccountID, &l.SyncCompletedAt,
			&l.EmailsFetched, &l.NewEmails, &l.Status, &l.ErrorMessage); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
