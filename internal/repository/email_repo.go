package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coltonheil/email-automation/internal/model"
	"github.com/coltonheil/email-automation/internal/sendercontext"
)

type EmailRepository struct {
	db *pgxpool.Pool
}

func NewEmailRepository(db *pgxpool.Pool) *EmailRepository {
	return &EmailRepository{db: db}
}

const emailColumns = `
	id, provider, account_id, message_id, thread_id,
	subject, from_email, from_name, to_email, cc, body, snippet, labels,
	is_unread, is_important, has_attachments,
	received_at, fetched_at,
	priority_score, priority_category, category, draft_failed, dedup_key
`

// Insert stores a normalized email. A dedup-key collision means the message
// was already ingested; it is reported as inserted=false, not an error.
func (r *EmailRepository) Insert(ctx context.Context, e *model.Email) (bool, error) {
	query := `
		INSERT INTO emails (` + emailColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		ON CONFLICT (dedup_key) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		e.ID, e.Provider, e.AccountID, e.MessageID, e.ThreadID,
		e.Subject, e.FromEmail, e.FromName, e.ToEmail, e.CC, e.Body, e.Snippet, e.Labels,
		e.IsUnread, e.IsImportant, e.HasAttachments,
		e.ReceivedAt, e.FetchedAt,
		e.PriorityScore, e.PriorityCategory, e.Category, e.DraftFailed, e.DedupKey,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindByID returns an email by id.
func (r *EmailRepository) FindByID(ctx context.Context, id string) (*model.Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// MarkRead flips the unread flag off.
func (r *EmailRepository) MarkRead(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE emails SET is_unread = FALSE WHERE id = $1`, id)
	return err
}

// UpdatePriority rewrites the derived fields after recomputation.
func (r *EmailRepository) UpdatePriority(ctx context.Context, id string, score int, priorityCategory, category string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE emails SET priority_score = $2, priority_category = $3, category = $4 WHERE id = $1
	`, id, score, priorityCategory, category)
	return err
}

// ListAll returns every stored email, newest first. Used by the recalc
// subcommand.
func (r *EmailRepository) ListAll(ctx context.Context, limit int) ([]*model.Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails ORDER BY received_at DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

// ListUrgentUnread returns unread urgent emails, highest score first.
func (r *EmailRepository) ListUrgentUnread(ctx context.Context, limit int) ([]*model.Email, error) {
	query := `
		SELECT ` + emailColumns + `
		FROM emails
		WHERE is_unread = TRUE AND priority_category = 'urgent'
		ORDER BY priority_score DESC, received_at DESC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// SenderAddresses returns every distinct sender. Used by the profile rebuild
// subcommand.
func (r *EmailRepository) SenderAddresses(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT from_email FROM emails`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

// SenderHistory returns the metadata-only history for one sender, newest
// first. Bodies ride along for writing-style analysis only.
func (r *EmailRepository) SenderHistory(ctx context.Context, senderEmail string, limit int) ([]sendercontext.HistoryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT subject, snippet, body, received_at, priority_score
		FROM emails
		WHERE from_email = $1
		ORDER BY received_at DESC
		LIMIT $2
	`, senderEmail, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []sendercontext.HistoryEntry
	for rows.Next() {
		var h sendercontext.HistoryEntry
		var receivedAt time.Time
		if err := rows.Scan(&h.Subject, &h.Snippet, &h.Body, &receivedAt, &h.PriorityScore); err != nil {
			return nil, err
		}
		h.ReceivedAt = receivedAt.Format(time.RFC3339)
		history = append(history, h)
	}
	return history, rows.Err()
}

// LatestFromSender returns the most recent received_at for a sender.
func (r *EmailRepository) LatestFromSender(ctx context.Context, senderEmail string) (time.Time, error) {
	var latest time.Time
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(received_at), 'epoch'::timestamptz) FROM emails WHERE from_email = $1
	`, senderEmail).Scan(&latest)
	return latest, err
}

// SetDraftFailed flags or clears an email whose draft generation failed.
func (r *EmailRepository) SetDraftFailed(ctx context.Context, id string, failed bool) error {
	_, err := r.db.Exec(ctx, `UPDATE emails SET draft_failed = $2 WHERE id = $1`, id, failed)
	return err
}

// ListDraftFailed returns emails flagged for a draft retry, oldest first, so
// the longest-waiting emails get another attempt before the run cap bites.
func (r *EmailRepository) ListDraftFailed(ctx context.Context, limit int) ([]*model.Email, error) {
	query := `
		SELECT ` + emailColumns + `
		FROM emails
		WHERE draft_failed = TRUE
		ORDER BY received_at ASC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// CountFromSender returns how many emails a sender has ever sent us. The
// history queries cap their window, this one does not.
func (r *EmailRepository) CountFromSender(ctx context.Context, senderEmail string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM emails WHERE from_email = $1
	`, senderEmail).Scan(&n)
	return n, err
}

// DeleteReadOlderThan applies the retention policy: only already-read emails
// past the cutoff are removed, and never ones with a draft attached.
func (r *EmailRepository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM emails
		WHERE is_unread = FALSE
		AND received_at < $1
		AND id NOT IN (SELECT email_id FROM draft_responses)
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *EmailRepository) scanOne(row rowScanner) (*model.Email, error) {
	var e model.Email
	err := row.Scan(
		&e.ID, &e.Provider, &e.AccountID, &e.MessageID, &e.ThreadID,
		&e.Subject, &e.FromEmail, &e.FromName, &e.ToEmail, &e.CC, &e.Body, &e.Snippet, &e.Labels,
		&e.IsUnread, &e.IsImportant, &e.HasAttachments,
		&e.ReceivedAt, &e.FetchedAt,
		&e.PriorityScore, &e.PriorityCategory, &e.Category, &e.DraftFailed, &e.DedupKey,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EmailRepository) list(ctx context.Context, query string, args ...any) ([]*model.Email, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []*model.Email
	for rows.Next() {
		e, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}
