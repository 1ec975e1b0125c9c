package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coltonheil/email-automation/internal/model"
)

var (
	ErrDraftNotFound     = errors.New("draft not found")
	ErrDraftExists       = errors.New("draft already exists for email")
	ErrInvalidTransition = errors.New("invalid draft state transition")
	ErrInvalidRating     = errors.New("rating requires an approved or sent draft and a score of 1-5")
	ErrVersionNotFound   = errors.New("draft version not found")
)

// DraftRepository owns the draft lifecycle. Every state change runs as an
// atomic read-modify-write with a row lock, and appends exactly one approval
// history event in the same transaction. The review surface and the batch
// pipeline share this store concurrently.
type DraftRepository struct {
	db *pgxpool.Pool
}

func NewDraftRepository(db *pgxpool.Pool) *DraftRepository {
	return &DraftRepository{db: db}
}

const draftColumns = `
	id, email_id, draft_text, edited_text, model_used, status,
	current_version, total_versions,
	approved_at, approved_by, rejected_at, rejected_by, rejection_reason,
	sent_at, sent_via, feedback_score, feedback_notes,
	created_at, updated_at
`

// Create inserts the version-1 draft for an email. At most one draft may
// exist per email.
func (r *DraftRepository) Create(ctx context.Context, d *model.Draft) error {
	query := `
		INSERT INTO draft_responses (email_id, draft_text, model_used, status)
		VALUES ($1, $2, $3, 'pending')
		ON CONFLICT (email_id) DO NOTHING
		RETURNING id, current_version, total_versions, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, d.EmailID, d.DraftText, d.ModelUsed).Scan(
		&d.ID, &d.CurrentVersion, &d.TotalVersions, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return ErrDraftExists
	}
	if err != nil {
		return err
	}
	d.Status = model.DraftPending
	return nil
}

// FindByID returns a draft by id.
func (r *DraftRepository) FindByID(ctx context.Context, id int) (*model.Draft, error) {
	row := r.db.QueryRow(ctx, `SELECT `+draftColumns+` FROM draft_responses WHERE id = $1`, id)
	d, err := scanDraft(row)
	if err == pgx.ErrNoRows {
		return nil, ErrDraftNotFound
	}
	return d, err
}

// FindByEmailID returns the draft attached to an email, or nil.
func (r *DraftRepository) FindByEmailID(ctx context.Context, emailID string) (*model.Draft, error) {
	row := r.db.QueryRow(ctx, `SELECT `+draftColumns+` FROM draft_responses WHERE email_id = $1`, emailID)
	d, err := scanDraft(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// ListPending returns pending drafts, oldest first.
func (r *DraftRepository) ListPending(ctx context.Context, limit int) ([]*model.Draft, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+draftColumns+`
		FROM draft_responses
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drafts []*model.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

// Approve moves pending -> approved.
func (r *DraftRepository) Approve(ctx context.Context, id int, by string) (*model.Draft, error) {
	return r.transition(ctx, id, by, func(ctx context.Context, tx pgx.Tx, d *model.Draft) error {
		if err := checkTransition(d, model.ActionApproved); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE draft_responses
			SET status = 'approved', approved_at = NOW(), approved_by = $2, updated_at = NOW()
			WHERE id = $1
		`, id, by)
		if err != nil {
			return err
		}
		return appendHistory(ctx, tx, id, model.ActionApproved, by, "", nil)
	})
}

// Reject moves pending -> rejected and records the reason.
func (r *DraftRepository) Reject(ctx context.Context, id int, by, reason string) (*model.Draft, error) {
	return r.transition(ctx, id, by, func(ctx context.Context, tx pgx.Tx, d *model.Draft) error {
		if err := checkTransition(d, model.ActionRejected); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE draft_responses
			SET status = 'rejected', rejected_at = NOW(), rejected_by = $2,
			    rejection_reason = $3, updated_at = NOW()
			WHERE id = $1
		`, id, by, reason)
		if err != nil {
			return err
		}
		return appendHistory(ctx, tx, id, model.ActionRejected, by, reason, nil)
	})
}

// Dismiss moves pending -> dismissed. No reply will be drafted again for the
// email.
func (r *DraftRepository) Dismiss(ctx context.Context, id int, by string) (*model.Draft, error) {
	return r.transition(ctx, id, by, func(ctx context.Context, tx pgx.Tx, d *model.Draft) error {
		if err := checkTransition(d, model.ActionDismissed); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE draft_responses SET status = 'dismissed', updated_at = NOW() WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		return appendHistory(ctx, tx, id, model.ActionDismissed, by, "", nil)
	})
}

// Edit replaces the live text. The outgoing text is archived as a version
// first, so every edit advances both version counters by one. Terminal
// drafts cannot be edited.
func (r *DraftRepository) Edit(ctx context.Context, id int, newText, by string) (*model.Draft, error) {
	return r.transition(ctx, id, by, func(ctx context.Context, tx pgx.Tx, d *model.Draft) error {
		snap, err := applyEdit(d, newText, by)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO draft_versions (draft_id, version_number, text, model_used, created_by)
			VALUES ($1, $2, $3, $4, $5)
		`, id, snap.Number, snap.Text, snap.ModelUsed, snap.CreatedBy)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE draft_responses
			SET edited_text = $2,
			    current_version = current_version + 1,
			    total_versions = total_versions + 1,
			    updated_at = NOW()
			WHERE id = $1
		`, id, newText)
		if err != nil {
			return err
		}
		return appendHistory(ctx, tx, id, model.ActionEdited, by, "",
			map[string]any{"from_version": snap.Number})
	})
}

// MarkSent moves approved -> sent and records how the user sent it. The
// system itself never sends anything.
func (r *DraftRepository) MarkSent(ctx context.Context, id int, by, via string) (*model.Draft, error) {
	return r.transition(ctx, id, by, func(ctx context.Context, tx pgx.Tx, d *model.Draft) error {
		if err := checkTransition(d, model.ActionSent); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE draft_responses
			SET status = 'sent', sent_at = NOW(), sent_via = $2, updated_at = NOW()
			WHERE id = $1
		`, id, via)
		if err != nil {
			return err
		}
		return appendHistory(ctx, tx, id, model.ActionSent, by, via, nil)
	})
}

// Rate records 1-5 feedback on an approved or sent draft.
func (r *DraftRepository) Rate(ctx context.Context, id, score int, notes, by string) (*model.Draft, error) {
	if score < 1 || score > 5 {
		return nil, ErrInvalidRating
	}
	return r.transition(ctx, id, by, func(ctx context.Context, tx pgx.Tx, d *model.Draft) error {
		if err := checkRating(d, score); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE draft_responses
			SET feedback_score = $2, feedback_notes = $3, updated_at = NOW()
			WHERE id = $1
		`, id, score, notes)
		if err != nil {
			return err
		}
		return appendHistory(ctx, tx, id, model.ActionRated, by, notes,
			map[string]any{"score": score})
	})
}

// Regenerate snapshots the current text as a version, then installs the new
// generation and bumps the version counters.
func (r *DraftRepository) Regenerate(ctx context.Context, id int, newText, modelUsed, by string) (*model.Draft, error) {
	return r.transition(ctx, id, by, func(ctx context.Context, tx pgx.Tx, d *model.Draft) error {
		snap, err := applyRegenerate(d, newText, modelUsed, by)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO draft_versions (draft_id, version_number, text, model_used, created_by)
			VALUES ($1, $2, $3, $4, $5)
		`, id, snap.Number, snap.Text, snap.ModelUsed, snap.CreatedBy)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE draft_responses
			SET draft_text = $2, edited_text = NULL, model_used = $3,
			    current_version = current_version + 1,
			    total_versions = total_versions + 1,
			    updated_at = NOW()
			WHERE id = $1
		`, id, newText, modelUsed)
		if err != nil {
			return err
		}
		return appendHistory(ctx, tx, id, model.ActionRegenerated, by, "",
			map[string]any{"from_version": snap.Number})
	})
}

// RestoreVersion copies an archived version's text back into the draft.
// Version counters are never decremented; restoring is itself recorded.
func (r *DraftRepository) RestoreVersion(ctx context.Context, id, versionNumber int, by string) (*model.Draft, error) {
	return r.transition(ctx, id, by, func(ctx context.Context, tx pgx.Tx, d *model.Draft) error {
		if err := checkTransition(d, model.ActionRestored); err != nil {
			return err
		}

		var text string
		err := tx.QueryRow(ctx, `
			SELECT text FROM draft_versions WHERE draft_id = $1 AND version_number = $2
		`, id, versionNumber).Scan(&text)
		if err == pgx.ErrNoRows {
			return ErrVersionNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE draft_responses
			SET draft_text = $2, edited_text = NULL, updated_at = NOW()
			WHERE id = $1
		`, id, text)
		if err != nil {
			return err
		}
		return appendHistory(ctx, tx, id, model.ActionRestored, by, "",
			map[string]any{"restored_version": versionNumber})
	})
}

// ListVersions returns the archived versions for a draft, oldest first.
func (r *DraftRepository) ListVersions(ctx context.Context, draftID int) ([]*model.DraftVersion, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, draft_id, version_number, text, model_used, created_by, notes, created_at
		FROM draft_versions
		WHERE draft_id = $1
		ORDER BY version_number ASC
	`, draftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*model.DraftVersion
	for rows.Next() {
		var v model.DraftVersion
		if err := rows.Scan(&v.ID, &v.DraftID, &v.VersionNumber, &v.Text,
			&v.ModelUsed, &v.CreatedBy, &v.Notes, &v.CreatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, &v)
	}
	return versions, rows.Err()
}

// History returns the audit trail for a draft, oldest first.
func (r *DraftRepository) History(ctx context.Context, draftID int) ([]*model.ApprovalHistoryEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, draft_id, action, performed_by, performed_at, notes, metadata
		FROM draft_approval_history
		WHERE draft_id = $1
		ORDER BY performed_at ASC, id ASC
	`, draftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.ApprovalHistoryEvent
	for rows.Next() {
		var ev model.ApprovalHistoryEvent
		var metadata []byte
		if err := rows.Scan(&ev.ID, &ev.DraftID, &ev.Action, &ev.PerformedBy,
			&ev.PerformedAt, &ev.Notes, &metadata); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &ev.Metadata); err != nil {
				return nil, err
			}
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// transition runs one state change under a row lock and returns the draft as
// it stands after the commit.
func (r *DraftRepository) transition(
	ctx context.Context,
	id int,
	by string,
	mutate func(ctx context.Context, tx pgx.Tx, d *model.Draft) error,
) (*model.Draft, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+draftColumns+` FROM draft_responses WHERE id = $1 FOR UPDATE`, id)
	d, err := scanDraft(row)
	if err == pgx.ErrNoRows {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := mutate(ctx, tx, d); err != nil {
		return nil, err
	}

	row = tx.QueryRow(ctx, `SELECT `+draftColumns+` FROM draft_responses WHERE id = $1`, id)
	updated, err := scanDraft(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func appendHistory(ctx context.Context, tx pgx.Tx, draftID int, action, by, notes string, metadata map[string]any) error {
	var payload []byte
	if metadata != nil {
		var err error
		payload, err = json.Marshal(metadata)
		if err != nil {
			return err
		}
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO draft_approval_history (draft_id, action, performed_by, notes, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, draftID, action, by, notes, payload)
	return err
}

func scanDraft(row rowScanner) (*model.Draft, error) {
	var d model.Draft
	err := row.Scan(
		&d.ID, &d.EmailID, &d.DraftText, &d.EditedText, &d.ModelUsed, &d.Status,
		&d.CurrentVersion, &d.TotalVersions,
		&d.ApprovedAt, &d.ApprovedBy, &d.RejectedAt, &d.RejectedBy, &d.RejectionReason,
		&d.SentAt, &d.SentVia, &d.FeedbackScore, &d.FeedbackNotes,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
