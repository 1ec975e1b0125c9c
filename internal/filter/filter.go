// Package filter decides which emails are worth an automatically generated
// draft. It keeps generation calls away from newsletters, no-reply addresses
// and other senders a reply would be wasted on.
package filter

import (
	"strings"
	"sync"

	"github.com/coltonheil/email-automation/internal/model"
)

// Decision is the filter verdict for one email.
type Decision struct {
	Draft  bool
	Reason string
}

// Filter evaluates emails against hot-reloadable rules.
type Filter struct {
	mu    sync.RWMutex
	rules *Rules
}

func New(rules *Rules) *Filter {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Filter{rules: rules}
}

// Reload swaps in a new rule set. Safe for concurrent use with Evaluate.
func (f *Filter) Reload(rules *Rules) {
	f.mu.Lock()
	f.rules = rules
	f.mu.Unlock()
}

// Evaluate applies the decision order: always-draft and overrides first,
// then skip rules, then draft by default.
func (f *Filter) Evaluate(e *model.Email, relationshipType string) Decision {
	f.mu.RLock()
	rules := f.rules
	f.mu.RUnlock()

	sender := strings.ToLower(e.FromEmail)

	// 白名单与关键词覆盖优先于所有跳过规则
	if matchesPattern(sender, rules.AlwaysDraft.Emails) ||
		matchesDomain(sender, rules.AlwaysDraft.Domains) {
		return Decision{Draft: true, Reason: "VIP sender - always draft"}
	}
	if e.PriorityScore >= rules.AlwaysDraft.PriorityThreshold {
		return Decision{Draft: true, Reason: "priority above threshold"}
	}
	if hasCriticalKeyword(e, rules.Override.CriticalKeywords) {
		return Decision{Draft: true, Reason: "critical keywords detected - override filters"}
	}

	if matchesPattern(sender, rules.SkipDrafting.Emails) {
		return Decision{Draft: false, Reason: skipReason(sender)}
	}
	if matchesDomain(sender, rules.SkipDrafting.Domains) {
		return Decision{Draft: false, Reason: "blacklisted domain (mail service provider)"}
	}
	for _, rt := range rules.SkipDrafting.RelationshipTypes {
		if rt == relationshipType {
			return Decision{Draft: false, Reason: "relationship type '" + relationshipType + "' is in skip list"}
		}
	}

	return Decision{Draft: true, Reason: "OK"}
}

// matchesPattern supports exactly one wildcard per pattern, at the start or
// the end. "no-reply@*" is a prefix match, "*@ops.example" a suffix match.
func matchesPattern(sender string, patterns []string) bool {
	for _, pattern := range patterns {
		p := strings.ToLower(pattern)
		switch {
		case strings.HasPrefix(p, "*"):
			if strings.HasSuffix(sender, p[1:]) {
				return true
			}
		case strings.HasSuffix(p, "*"):
			if strings.HasPrefix(sender, p[:len(p)-1]) {
				return true
			}
		default:
			if sender == p {
				return true
			}
		}
	}
	return false
}

func matchesDomain(sender string, domains []string) bool {
	at := strings.LastIndexByte(sender, '@')
	if at < 0 {
		return false
	}
	senderDomain := sender[at+1:]
	for _, d := range domains {
		if senderDomain == strings.ToLower(d) {
			return true
		}
	}
	return false
}

func hasCriticalKeyword(e *model.Email, keywords []string) bool {
	body := e.Body
	if body == "" {
		body = e.Snippet
	}
	combined := strings.ToLower(e.Subject + " " + body)
	for _, kw := range keywords {
		if strings.Contains(combined, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func skipReason(sender string) string {
	switch {
	case strings.Contains(sender, "no-reply") || strings.Contains(sender, "noreply"):
		return "no-reply email"
	case strings.Contains(sender, "newsletter"):
		return "newsletter"
	case strings.Contains(sender, "marketing"):
		return "marketing email"
	default:
		return "automated email"
	}
}
