// Package sendercontext derives sender profiles and draft-time context from
// a sender's email history. Only subjects, snippets and metadata feed the
// analysis so downstream generation payloads stay bounded.
package sendercontext

import (
	"regexp"
	"sort"
	"strings"

	"github.com/coltonheil/email-automation/internal/model"
)

// HistoryLimit bounds how much sender history feeds a single context build.
const HistoryLimit = 10

const snippetCap = 200

// Urgency levels used for draft-time context. Independent of the stored
// priority category since context is built at draft time.
const (
	UrgencyCritical = "critical"
	UrgencyHigh     = "high"
	UrgencyNormal   = "normal"
	UrgencyLow      = "low"
)

// Response patterns. Sent mail is not tracked yet, so anything beyond
// "unknown" is a coarse default.
const (
	PatternUnknown   = "unknown"
	PatternSometimes = "sometimes_respond"
)

var automatedIndicators = []string{
	"no-reply", "noreply", "donotreply", "notifications",
	"marketing", "newsletter", "updates", "alerts",
}

var vendorDomains = []string{
	"stripe.com", "paypal.com", "aws.amazon.com", "github.com",
	"klaviyo.com", "sendgrid.net", "mailchimp.com",
}

var businessKeywords = []string{
	"invoice", "payment", "contract", "proposal", "meeting",
	"project", "deadline", "budget", "team", "client",
}

var topicStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "up": {}, "about": {}, "into": {}, "through": {}, "during": {},
	"before": {}, "after": {}, "above": {}, "below": {}, "between": {},
	"under": {}, "again": {}, "further": {}, "re": {}, "fwd": {}, "fw": {},
}

var wordRe = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

var criticalKeywords = []string{"urgent", "asap", "critical", "emergency", "immediate"}
var highKeywords = []string{"important", "deadline", "expiring", "action required"}

// HistoryEntry is the metadata-only view of a past email from the sender.
type HistoryEntry struct {
	Subject       string
	Snippet       string
	Body          string // used for style analysis only, never included in context
	ReceivedAt    string
	PriorityScore int
}

// Context is everything the draft generator knows about the sender.
type Context struct {
	SenderEmail         string
	SenderName          string
	RelationshipType    string
	TotalEmailsReceived int
	LastContact         string
	AvgPriorityScore    float64
	CommonTopics        []string
	ResponsePattern     string
	AvgResponseHours    *int
	WritingStyle        string
	UrgencyLevel        string
	RecentEmailCount    int

	CurrentSubject  string
	CurrentSnippet  string
	CurrentPriority int
}

// Build assembles the draft-time context for the current email. History must
// already be newest-first; anything past HistoryLimit is ignored.
func Build(current *model.Email, profile *model.SenderProfile, history []HistoryEntry) *Context {
	if len(history) > HistoryLimit {
		history = history[:HistoryLimit]
	}

	ctx := &Context{
		SenderEmail:      current.FromEmail,
		RelationshipType: ClassifyRelationship(current.FromEmail, history),
		CommonTopics:     ExtractTopics(subjects(history), 5),
		ResponsePattern:  responsePattern(history),
		WritingStyle:     AnalyzeWritingStyle(bodies(history)),
		UrgencyLevel:     UrgencyLevel(current),
		RecentEmailCount: len(history),
		AvgPriorityScore: 50,

		CurrentSubject:  current.Subject,
		CurrentSnippet:  capString(current.Snippet, snippetCap),
		CurrentPriority: current.PriorityScore,
	}

	if profile != nil {
		ctx.SenderName = profile.Name
		ctx.TotalEmailsReceived = profile.TotalEmailsReceived
		if !profile.LastEmailAt.IsZero() {
			ctx.LastContact = profile.LastEmailAt.Format("2006-01-02")
		}
		ctx.AvgPriorityScore = profile.AvgPriorityScore
		ctx.AvgResponseHours = profile.TypicalResponseHrs
	}

	return ctx
}

// ClassifyRelationship is rule-ordered, first match wins:
// automated -> vendor -> business -> personal.
func ClassifyRelationship(senderEmail string, history []HistoryEntry) string {
	addr := strings.ToLower(senderEmail)

	for _, indicator := range automatedIndicators {
		if strings.Contains(addr, indicator) {
			return model.RelationshipAutomated
		}
	}

	for _, domain := range vendorDomains {
		if strings.Contains(addr, domain) {
			return model.RelationshipVendor
		}
	}

	if len(history) > 0 {
		combined := strings.ToLower(strings.Join(subjects(history), " "))
		count := 0
		for _, kw := range businessKeywords {
			if strings.Contains(combined, kw) {
				count++
			}
		}
		if count >= 3 {
			return model.RelationshipBusiness
		}
	}

	return model.RelationshipPersonal
}

// ExtractTopics tokenizes subjects, drops stopwords, and returns the topN
// tokens by descending frequency. Ties break by first-seen order.
func ExtractTopics(subjects []string, topN int) []string {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	order := 0

	for _, subject := range subjects {
		for _, word := range wordRe.FindAllString(strings.ToLower(subject), -1) {
			if _, skip := topicStopwords[word]; skip {
				continue
			}
			if _, seen := counts[word]; !seen {
				firstSeen[word] = order
				order++
			}
			counts[word]++
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.SliceStable(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return firstSeen[words[i]] < firstSeen[words[j]]
	})

	if len(words) > topN {
		words = words[:topN]
	}
	return words
}

// AnalyzeWritingStyle samples up to five bodies and classifies tone.
func AnalyzeWritingStyle(bodies []string) string {
	if len(bodies) > 5 {
		bodies = bodies[:5]
	}
	var nonEmpty []string
	for _, b := range bodies {
		if b != "" {
			nonEmpty = append(nonEmpty, b)
		}
	}
	if len(nonEmpty) == 0 {
		return "professional"
	}

	combined := strings.ToLower(strings.Join(nonEmpty, " "))

	formalIndicators := []string{"dear", "sincerely", "regards", "respectfully", "kindly"}
	casualIndicators := []string{"hey", "hi there", "thanks!", "cheers", ":)"}

	formal, casual := 0, 0
	for _, w := range formalIndicators {
		if strings.Contains(combined, w) {
			formal++
		}
	}
	for _, w := range casualIndicators {
		if strings.Contains(combined, w) {
			casual++
		}
	}

	if formal > casual {
		return "formal"
	}
	if casual > formal {
		return "casual"
	}

	sentences := strings.Split(combined, ".")
	totalWords := 0
	for _, s := range sentences {
		totalWords += len(strings.Fields(s))
	}
	if avg := float64(totalWords) / float64(max(len(sentences), 1)); avg < 15 {
		return "concise"
	}
	return "professional"
}

// UrgencyLevel derives the draft-time urgency from the current email's score
// and keyword density.
func UrgencyLevel(e *model.Email) string {
	combined := strings.ToLower(e.Subject + " " + e.Body)

	criticalCount := 0
	for _, kw := range criticalKeywords {
		if strings.Contains(combined, kw) {
			criticalCount++
		}
	}
	highCount := 0
	for _, kw := range highKeywords {
		if strings.Contains(combined, kw) {
			highCount++
		}
	}

	switch {
	case e.PriorityScore >= 90 || criticalCount >= 2:
		return UrgencyCritical
	case e.PriorityScore >= 80 || highCount >= 2:
		return UrgencyHigh
	case e.PriorityScore >= 60:
		return UrgencyNormal
	default:
		return UrgencyLow
	}
}

func responsePattern(history []HistoryEntry) string {
	if len(history) < 3 {
		return PatternUnknown
	}
	// 还未跟踪发出的邮件，先给一个粗粒度默认值
	return PatternSometimes
}

func subjects(history []HistoryEntry) []string {
	out := make([]string, len(history))
	for i, h := range history {
		out[i] = h.Subject
	}
	return out
}

func bodies(history []HistoryEntry) []string {
	var out []string
	for _, h := range history {
		out = append(out, h.Body)
	}
	return out
}

func capString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
