package model

import "time"

// AI edit job statuses.
const (
	EditJobPending    = "pending"
	EditJobProcessing = "processing"
	EditJobCompleted  = "completed"
	EditJobFailed     = "failed"
)

// EditJob is a queued AI edit request for a draft. The API enqueues a job and
// returns its ID; the worker resolves it; callers poll for the outcome.
type EditJob struct {
	ID          string
	DraftID     int
	Instruction string
	Status      string
	ResultText  string
	ErrorMsg    string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
