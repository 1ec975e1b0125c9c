package model

import "time"

// ApiUsageRecord is one row of the append-only usage ledger. Rate limit
// windows are always computed from this ledger, never from in-process
// counters, so limits hold across process restarts.
type ApiUsageRecord struct {
	ID         int
	Service    string
	Action     string
	Timestamp  time.Time
	TokensUsed int
	CostUSD    float64
	Success    bool
	Metadata   map[string]any
}

// DraftGenerationLogEntry records one successful generation per sender,
// used for the per-sender duplicate window.
type DraftGenerationLogEntry struct {
	ID          int
	EmailID     string
	SenderEmail string
	DraftID     int
	GeneratedAt time.Time
}

// UsageSummary aggregates ledger rows per service over a window.
type UsageSummary struct {
	Service  string  `json:"service"`
	Calls    int     `json:"calls"`
	Tokens   int     `json:"tokens"`
	CostUSD  float64 `json:"cost_usd"`
	Failures int     `json:"failures"`
}
