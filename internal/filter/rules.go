package filter

import (
	"encoding/json"
	"fmt"
	"os"
)

// Rules is the on-disk filter configuration. The layout matches
// config/sender_filters.json.
type Rules struct {
	SkipDrafting struct {
		Emails            []string `json:"emails"`
		Domains           []string `json:"domains"`
		RelationshipTypes []string `json:"relationship_types"`
	} `json:"skip_drafting"`

	AlwaysDraft struct {
		Emails            []string `json:"emails"`
		Domains           []string `json:"domains"`
		PriorityThreshold int      `json:"priority_threshold"`
	} `json:"always_draft"`

	Override struct {
		CriticalKeywords []string `json:"critical_keywords"`
	} `json:"override"`
}

// DefaultRules is used when no rules file exists.
func DefaultRules() *Rules {
	r := &Rules{}
	r.SkipDrafting.Emails = []string{"no-reply@*", "noreply@*"}
	r.SkipDrafting.Domains = []string{"mailchimp.com", "sendgrid.net"}
	r.SkipDrafting.RelationshipTypes = []string{"automated"}
	r.AlwaysDraft.PriorityThreshold = 90
	r.Override.CriticalKeywords = []string{"urgent", "critical", "emergency"}
	return r
}

// LoadRules reads the rules file. A missing file falls back to defaults; a
// malformed file is an error so a bad deploy does not silently widen the
// filter.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRules(), nil
		}
		return nil, fmt.Errorf("read filter rules: %w", err)
	}

	var r Rules
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse filter rules: %w", err)
	}
	if r.AlwaysDraft.PriorityThreshold == 0 {
		r.AlwaysDraft.PriorityThreshold = 90
	}
	return &r, nil
}
