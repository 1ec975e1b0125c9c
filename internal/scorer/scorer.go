// Package scorer assigns 0-100 priority scores to emails. Scoring is a pure
// function of the email and the clock passed in, so results are reproducible.
package scorer

import (
	"regexp"
	"strings"
	"time"

	"github.com/coltonheil/email-automation/internal/categorizer"
	"github.com/coltonheil/email-automation/internal/model"
)

const baseline = 50

// Category thresholds. Lower bound inclusive, upper bound exclusive.
const (
	urgentThreshold = 80
	normalThreshold = 40
)

var defaultVIPDomains = []string{
	"stripe.com",
	"paypal.com",
	"github.com",
}

var defaultUrgencyKeywords = []string{
	"urgent",
	"asap",
	"important",
	"critical",
	"action required",
	"deadline",
	"expiring",
	"payment",
	"invoice",
	"security alert",
	"password reset",
}

var defaultSpamIndicators = []string{
	"unsubscribe",
	"no-reply",
	"noreply",
	"newsletter",
	"marketing",
	"promotional",
}

var newsletterPatterns = []string{
	"newsletter",
	"digest",
	"weekly update",
	"monthly roundup",
	"unsubscribe",
	"view in browser",
}

// Config customizes sender lists and keyword sets. Zero value uses defaults.
type Config struct {
	VIPSenders      []string
	VIPDomains      []string
	UrgencyKeywords []string
	SpamIndicators  []string
}

type Scorer struct {
	vipSenders     []string
	vipDomains     []string
	urgencyRes     []*regexp.Regexp
	spamIndicators []string
}

func New(cfg Config) *Scorer {
	if cfg.VIPDomains == nil {
		cfg.VIPDomains = defaultVIPDomains
	}
	if cfg.UrgencyKeywords == nil {
		cfg.UrgencyKeywords = defaultUrgencyKeywords
	}
	if cfg.SpamIndicators == nil {
		cfg.SpamIndicators = defaultSpamIndicators
	}

	s := &Scorer{
		vipSenders:     lowerAll(cfg.VIPSenders),
		vipDomains:     lowerAll(cfg.VIPDomains),
		spamIndicators: lowerAll(cfg.SpamIndicators),
	}
	// 关键词按词边界匹配，大小写不敏感
	for _, kw := range cfg.UrgencyKeywords {
		s.urgencyRes = append(s.urgencyRes,
			regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
	}
	return s
}

// Score computes the priority score for an email at the given instant.
func (s *Scorer) Score(e *model.Email, now time.Time) int {
	score := baseline

	if s.isVIPSender(e.FromEmail) {
		score += 30
	}
	if s.hasUrgencyKeyword(e.Subject + " " + e.Snippet) {
		score += 20
	}
	if e.IsImportant {
		score += 15
	}
	if e.IsUnread {
		score += 10
	}
	if e.HasAttachments {
		score += 5
	}
	score += recencyBoost(e.ReceivedAt, now)

	if s.isLikelySpam(e) {
		score -= 30
	}
	if now.Sub(e.ReceivedAt) > 7*24*time.Hour {
		score -= 20
	}
	if isNewsletter(e) {
		score -= 15
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Categorize maps a score to its priority category.
func Categorize(score int) string {
	switch {
	case score >= urgentThreshold:
		return model.PriorityUrgent
	case score >= normalThreshold:
		return model.PriorityNormal
	default:
		return model.PriorityLow
	}
}

// Apply scores and categorizes the email, writing all derived fields back.
// The content category's adjustment lands on the score before the priority
// category is derived from it.
func (s *Scorer) Apply(e *model.Email, now time.Time) {
	score := s.Score(e, now)
	category, boost := categorizer.Classify(e.FromEmail, e.Subject, e.Body)
	e.Category = category
	e.PriorityScore = categorizer.AdjustPriority(score, boost)
	e.PriorityCategory = Categorize(e.PriorityScore)
}

func (s *Scorer) isVIPSender(from string) bool {
	from = strings.ToLower(from)
	for _, vip := range s.vipSenders {
		if strings.Contains(from, vip) {
			return true
		}
	}
	for _, domain := range s.vipDomains {
		if strings.Contains(from, domain) {
			return true
		}
	}
	return false
}

func (s *Scorer) hasUrgencyKeyword(text string) bool {
	for _, re := range s.urgencyRes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// isLikelySpam requires two or more indicators; a single hit is too common
// in legitimate transactional mail.
func (s *Scorer) isLikelySpam(e *model.Email) bool {
	combined := strings.ToLower(e.FromEmail + " " + e.Subject)
	count := 0
	for _, indicator := range s.spamIndicators {
		if strings.Contains(combined, indicator) {
			count++
		}
	}
	return count >= 2
}

func isNewsletter(e *model.Email) bool {
	combined := strings.ToLower(e.FromEmail + " " + e.Subject + " " + e.Snippet)
	for _, pattern := range newsletterPatterns {
		if strings.Contains(combined, pattern) {
			return true
		}
	}
	return false
}

func recencyBoost(receivedAt, now time.Time) int {
	age := now.Sub(receivedAt)
	switch {
	case age < time.Hour:
		return 15
	case age < 6*time.Hour:
		return 10
	case age < 24*time.Hour:
		return 5
	default:
		return 0
	}
}

func lowerAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}
