package model

import "time"

// Relationship types, in classification order.
const (
	RelationshipAutomated = "automated"
	RelationshipVendor    = "vendor"
	RelationshipBusiness  = "business"
	RelationshipPersonal  = "personal"
)

// SenderProfile aggregates a sender's email history. It is derived data:
// recomputed incrementally on every stored email, never hand-edited.
type SenderProfile struct {
	ID                  int
	EmailAddress        string
	Name                string
	TotalEmailsReceived int
	LastEmailAt         time.Time
	AvgPriorityScore    float64
	CommonTopics        []string
	RelationshipType    string
	ResponsePattern     string
	TypicalResponseHrs  *int
	WritingStyleNotes   string
	UpdatedAt           time.Time
}
