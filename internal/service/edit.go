package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "github.com/coltonheil/email-automation/contracts/mq"
	"github.com/coltonheil/email-automation/internal/model"
	"github.com/coltonheil/email-automation/internal/repository"
	"github.com/coltonheil/email-automation/pkg/outbox"
)

var ErrEmptyInstruction = errors.New("edit instruction is empty")

// EditService enqueues AI edit jobs for drafts. The job row and the
// draft.edit.requested event commit in one transaction; the dispatcher
// delivers the event to the worker afterwards.
type EditService struct {
	db        *pgxpool.Pool
	draftRepo *repository.DraftRepository
	jobRepo   *repository.EditJobRepository
	outbox    *outbox.Store
	logger    *zap.Logger
}

func NewEditService(
	db *pgxpool.Pool,
	draftRepo *repository.DraftRepository,
	jobRepo *repository.EditJobRepository,
	logger *zap.Logger,
) *EditService {
	return &EditService{
		db:        db,
		draftRepo: draftRepo,
		jobRepo:   jobRepo,
		outbox:    outbox.NewStore(db),
		logger:    logger,
	}
}

// RequestEdit validates the target draft and enqueues an edit job.
func (s *EditService) RequestEdit(ctx context.Context, draftID int, instruction, requestedBy string) (*model.EditJob, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, ErrEmptyInstruction
	}

	draft, err := s.draftRepo.FindByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Terminal() {
		return nil, fmt.Errorf("draft %d is %s: %w", draftID, draft.Status, repository.ErrInvalidTransition)
	}

	job := &model.EditJob{
		DraftID:     draftID,
		Instruction: instruction,
	}

	// 任务行和事件必须一起提交
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.jobRepo.CreateInTx(ctx, tx, job); err != nil {
		return nil, fmt.Errorf("create edit job: %w", err)
	}

	payload := mqcontracts.DraftEditRequestedPayload{
		JobID:       job.ID,
		DraftID:     draftID,
		Instruction: instruction,
		RequestedBy: requestedBy,
	}
	draftID64 := int64(draftID)
	if err := s.outbox.Enqueue(ctx, tx, "draft", &draftID64, payload); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", payload.RoutingKey(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("edit job enqueued",
		zap.String("job_id", job.ID),
		zap.Int("draft_id", draftID),
	)
	return job, nil
}

// JobStatus returns the current state of an edit job for polling.
func (s *EditService) JobStatus(ctx context.Context, jobID string) (*model.EditJob, error) {
	return s.jobRepo.FindByID(ctx, jobID)
}
