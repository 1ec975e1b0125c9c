package model

import "time"

// Draft statuses. Sent, rejected and dismissed are terminal.
const (
	DraftPending   = "pending"
	DraftApproved  = "approved"
	DraftRejected  = "rejected"
	DraftSent      = "sent"
	DraftDismissed = "dismissed"
)

// Actor identities recorded on versions and history events.
const (
	ActorSystem = "system"
	ActorUser   = "user"
	ActorAIEdit = "ai-edit"
)

// Draft is the generated reply for one email. At most one draft exists per
// email; DraftText keeps the original generation, EditedText the latest edit.
type Draft struct {
	ID         int
	EmailID    string
	DraftText  string
	EditedText *string
	ModelUsed  string
	Status     string

	CurrentVersion int
	TotalVersions  int

	ApprovedAt      *time.Time
	ApprovedBy      string
	RejectedAt      *time.Time
	RejectedBy      string
	RejectionReason string
	SentAt          *time.Time
	SentVia         string

	FeedbackScore *int
	FeedbackNotes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Text returns the live draft text: the latest edit when one exists,
// otherwise the original generation.
func (d *Draft) Text() string {
	if d.EditedText != nil && *d.EditedText != "" {
		return *d.EditedText
	}
	return d.DraftText
}

// Terminal reports whether the draft status admits no further transitions.
func (d *Draft) Terminal() bool {
	switch d.Status {
	case DraftSent, DraftRejected, DraftDismissed:
		return true
	}
	return false
}

// DraftVersion is an append-only snapshot of draft text. Versions form a
// linear history per draft and are never mutated or deleted.
type DraftVersion struct {
	ID            int
	DraftID       int
	VersionNumber int
	Text          string
	ModelUsed     string
	CreatedBy     string
	Notes         string
	CreatedAt     time.Time
}

// Approval history actions.
const (
	ActionApproved    = "approved"
	ActionRejected    = "rejected"
	ActionEdited      = "edited"
	ActionSent        = "sent"
	ActionRated       = "rated"
	ActionRestored    = "restored"
	ActionDismissed   = "dismissed"
	ActionRegenerated = "regenerated"
)

// ApprovalHistoryEvent is an append-only audit entry; exactly one is written
// per state-changing operation on a draft.
type ApprovalHistoryEvent struct {
	ID          int
	DraftID     int
	Action      string
	PerformedBy string
	PerformedAt time.Time
	Notes       string
	Metadata    map[string]any
}
