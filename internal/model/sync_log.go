package model

import "time"

// SyncLog records one fetch pass over one account.
type SyncLog struct {
	ID              int
	AccountID       string
	SyncCompletedAt time.Time
	EmailsFetched   int
	NewEmails       int
	Status          string
	ErrorMessage    string
}

// RunSummary is the user-visible outcome of one pipeline invocation.
// Every skipped or failed email is counted; nothing is silently swallowed.
type RunSummary struct {
	Fetched       int            `json:"fetched"`
	New           int            `json:"new"`
	Duplicates    int            `json:"duplicates"`
	Invalid       int            `json:"invalid"`
	DraftRetries  int            `json:"draft_retries"`
	DraftsCreated int            `json:"drafts_created"`
	Filtered      int            `json:"filtered"`
	RateLimited   map[string]int `json:"rate_limited"`
	Failed        int            `json:"failed"`
}
