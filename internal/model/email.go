package model

import "time"

// Priority categories derived from the priority score.
const (
	PriorityUrgent = "urgent"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

// Email is the canonical message record, normalized from any provider.
type Email struct {
	ID        string
	Provider  string
	AccountID string
	MessageID string
	ThreadID  string

	Subject   string
	FromEmail string
	FromName  string
	ToEmail   string
	CC        string
	Body      string
	Snippet   string
	Labels    []string

	IsUnread       bool
	IsImportant    bool
	HasAttachments bool

	ReceivedAt time.Time
	FetchedAt  time.Time

	PriorityScore    int
	PriorityCategory string
	Category         string
	// DraftFailed marks an email whose draft generation failed; the next
	// pipeline run retries it before fetching anything new.
	DraftFailed bool
	DedupKey    string
}
