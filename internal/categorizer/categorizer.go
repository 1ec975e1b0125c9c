// Package categorizer labels emails with a content category and the
// priority adjustment that goes with it. Each category scores keyword and
// sender-address hits independently and the best-scoring category wins.
package categorizer

import (
	"regexp"
	"strings"
)

// CategoryOther is assigned when no rule scores at all.
const CategoryOther = "other"

const (
	keywordPoints      = 10
	subjectBonus       = 5
	senderPatternPoint = 15
)

type rule struct {
	name     string
	keywords []string
	senders  []*regexp.Regexp
	boost    int
}

func compile(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(`(?i)` + p)
	}
	return res
}

// 规则顺序无关，按得分取最高
var rules = []rule{
	{
		name: "financial",
		keywords: []string{
			"invoice", "payment", "receipt", "billing", "paid", "charge",
			"subscription", "renewal", "refund", "transaction", "statement",
			"balance", "amount due", "payment received", "payment failed",
		},
		senders: compile(
			`billing@`, `payments@`, `invoice@`, `accounting@`,
			`@stripe\.com`, `@paypal\.com`, `@square\.com`, `@quickbooks`,
		),
		boost: 10,
	},
	{
		name: "support",
		keywords: []string{
			"ticket", "support", "help desk", "case number", "issue",
			"bug report", "feature request", "feedback", "assistance",
			"problem", "trouble", "resolution", "escalated",
		},
		senders: compile(
			`support@`, `help@`, `helpdesk@`, `service@`, `care@`,
			`@zendesk\.`, `@freshdesk\.`, `@intercom`,
		),
		boost: 5,
	},
	{
		name: "partnership",
		keywords: []string{
			"partnership", "collaboration", "opportunity", "proposal",
			"joint venture", "affiliate", "sponsor", "collaborate",
			"business development", "strategic", "alliance",
		},
		senders: compile(`partnerships@`, `bizdev@`, `bd@`),
		boost:   15,
	},
	{
		name: "newsletter",
		keywords: []string{
			"unsubscribe", "newsletter", "digest", "weekly update",
			"monthly update", "roundup", "bulletin", "subscribe",
			"email preferences", "opt out", "mailing list",
		},
		senders: compile(
			`newsletter@`, `news@`, `updates@`, `digest@`,
			`@mailchimp\.`, `@substack\.`, `@convertkit\.`,
			`noreply@`, `no-reply@`, `donotreply@`,
		),
		boost: -20,
	},
	{
		name: "action_required",
		keywords: []string{
			"action required", "urgent", "deadline", "asap", "immediate",
			"time sensitive", "expire", "expiring", "last chance",
			"final notice", "respond by", "due date", "overdue",
		},
		boost: 25,
	},
	{
		name: "security",
		keywords: []string{
			"security alert", "password", "verification", "suspicious",
			"login attempt", "two-factor", "2fa", "authentication",
			"account activity", "unusual activity", "compromised",
			"reset your password", "verify your identity",
		},
		senders: compile(`security@`, `noreply@.*security`, `alerts@`),
		boost:   20,
	},
	{
		name: "social",
		keywords: []string{
			"liked your", "commented on", "mentioned you", "followed you",
			"new follower", "tagged you", "shared your", "replied to",
			"new connection", "invitation to connect", "endorsed",
		},
		senders: compile(
			`@linkedin\.`, `@twitter\.`, `@facebook\.`, `@instagram\.`,
			`notifications@`, `notify@`,
		),
		boost: -15,
	},
	{
		name: "shipping",
		keywords: []string{
			"order confirmation", "shipped", "delivery", "tracking",
			"out for delivery", "package", "shipment", "carrier",
			"estimated arrival", "order status", "dispatched",
		},
		senders: compile(
			`orders@`, `shipping@`, `@ups\.`, `@fedex\.`, `@usps\.`,
			`@amazon\.com`, `@shopify`,
		),
		boost: 5,
	},
	{
		name: "calendar",
		keywords: []string{
			"meeting", "calendar", "invite", "rsvp", "scheduled",
			"appointment", "event", "reminder", "agenda", "join meeting",
			"zoom", "google meet", "teams meeting",
		},
		senders: compile(`calendar@`, `@calendar\.google\.com`, `@calendly`),
		boost:   10,
	},
}

// Classify scores every category against the email and returns the winning
// category name with its priority adjustment. Keyword hits count in subject
// and body, subject hits count extra, a matching sender address counts most.
func Classify(fromEmail, subject, body string) (string, int) {
	subj := strings.ToLower(subject)
	combined := subj + " " + strings.ToLower(body)

	bestName := CategoryOther
	bestBoost := 0
	bestScore := 0
	for _, r := range rules {
		score := 0
		for _, kw := range r.keywords {
			if strings.Contains(combined, kw) {
				score += keywordPoints
				if strings.Contains(subj, kw) {
					score += subjectBonus
				}
			}
		}
		for _, re := range r.senders {
			if re.MatchString(fromEmail) {
				score += senderPatternPoint
			}
		}
		if score > bestScore {
			bestName, bestBoost, bestScore = r.name, r.boost, score
		}
	}
	return bestName, bestBoost
}

// AdjustPriority applies a category adjustment to a priority score, clamped
// to the 0-100 range.
func AdjustPriority(score, boost int) int {
	score += boost
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
