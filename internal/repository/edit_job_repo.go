package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coltonheil/email-automation/internal/model"
)

var ErrEditJobNotFound = errors.New("edit job not found")

type EditJobRepository struct {
	db *pgxpool.Pool
}

func NewEditJobRepository(db *pgxpool.Pool) *EditJobRepository {
	return &EditJobRepository{db: db}
}

// Create enqueues a pending edit job and assigns its id.
func (r *EditJobRepository) Create(ctx context.Context, job *model.EditJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = model.EditJobPending
	return r.db.QueryRow(ctx, `
		INSERT INTO ai_edit_jobs (id, draft_id, instruction, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING created_at
	`, job.ID, job.DraftID, job.Instruction).Scan(&job.CreatedAt)
}

// CreateInTx enqueues a pending edit job inside an existing transaction, so
// the job row and its outbox event commit together.
func (r *EditJobRepository) CreateInTx(ctx context.Context, tx pgx.Tx, job *model.EditJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = model.EditJobPending
	return tx.QueryRow(ctx, `
		INSERT INTO ai_edit_jobs (id, draft_id, instruction, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING created_at
	`, job.ID, job.DraftID, job.Instruction).Scan(&job.CreatedAt)
}

// FindByID returns an edit job by id.
func (r *EditJobRepository) FindByID(ctx context.Context, id string) (*model.EditJob, error) {
	var job model.EditJob
	err := r.db.QueryRow(ctx, `
		SELECT id, draft_id, instruction, status, result_text, error_msg, created_at, processed_at
		FROM ai_edit_jobs
		WHERE id = $1
	`, id).Scan(&job.ID, &job.DraftID, &job.Instruction, &job.Status,
		&job.ResultText, &job.ErrorMsg, &job.CreatedAt, &job.ProcessedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrEditJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ClaimPending moves a pending job to processing. Returns false when the job
// was already claimed, which makes redelivered messages a no-op.
func (r *EditJobRepository) ClaimPending(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE ai_edit_jobs SET status = 'processing' WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Complete stores the edit result.
func (r *EditJobRepository) Complete(ctx context.Context, id, resultText string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE ai_edit_jobs
		SET status = 'completed', result_text = $2, processed_at = NOW()
		WHERE id = $1
	`, id, resultText)
	return err
}

// Fail records a terminal failure.
func (r *EditJobRepository) Fail(ctx context.Context, id, errMsg string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE ai_edit_jobs
		SET status = 'failed', error_msg = $2, processed_at = NOW()
		WHERE id = $1
	`, id, errMsg)
	return err
}
