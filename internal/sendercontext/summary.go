package sendercontext

import (
	"fmt"
	"strings"
	"time"

	"github.com/coltonheil/email-automation/internal/model"
)

// Summary renders the context as the plain-text block handed to the
// generation backend.
func (c *Context) Summary() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("SENDER: %s <%s>", c.SenderName, c.SenderEmail))
	parts = append(parts, fmt.Sprintf("RELATIONSHIP: %s", titleWord(c.RelationshipType)))

	if c.TotalEmailsReceived > 0 {
		parts = append(parts, fmt.Sprintf("TOTAL EMAILS: %d", c.TotalEmailsReceived))
		parts = append(parts, fmt.Sprintf("LAST CONTACT: %s", c.LastContact))
	}

	if len(c.CommonTopics) > 0 {
		parts = append(parts, fmt.Sprintf("COMMON TOPICS: %s", strings.Join(c.CommonTopics, ", ")))
	}

	if c.ResponsePattern != PatternUnknown {
		parts = append(parts, fmt.Sprintf("RESPONSE PATTERN: %s", titleWord(strings.ReplaceAll(c.ResponsePattern, "_", " "))))
	}

	parts = append(parts, fmt.Sprintf("WRITING STYLE: %s", titleWord(c.WritingStyle)))
	parts = append(parts, fmt.Sprintf("URGENCY: %s", strings.ToUpper(c.UrgencyLevel)))

	subject := c.CurrentSubject
	if subject == "" {
		subject = "(no subject)"
	}
	parts = append(parts, "\nCURRENT EMAIL:")
	parts = append(parts, fmt.Sprintf("Subject: %s", subject))
	parts = append(parts, fmt.Sprintf("Priority Score: %d/100", c.CurrentPriority))
	if c.CurrentSnippet != "" {
		parts = append(parts, fmt.Sprintf("Preview: %s...", c.CurrentSnippet))
	}

	return strings.Join(parts, "\n")
}

// BuildProfile recomputes a sender profile from the recent history window.
// totalReceived is the all-time count for the sender, which the capped
// history cannot supply. Used by the rebuild subcommand and the profile
// handler.
func BuildProfile(senderEmail, name string, totalReceived int, history []HistoryEntry, lastEmailAt time.Time) *model.SenderProfile {
	total := totalReceived
	if total < len(history) {
		total = len(history)
	}
	var sum float64
	for _, h := range history {
		sum += float64(h.PriorityScore)
	}
	avg := 50.0
	if len(history) > 0 {
		avg = sum / float64(len(history))
	}

	return &model.SenderProfile{
		EmailAddress:        strings.ToLower(senderEmail),
		Name:                name,
		TotalEmailsReceived: total,
		LastEmailAt:         lastEmailAt,
		AvgPriorityScore:    avg,
		CommonTopics:        ExtractTopics(subjects(history), 5),
		RelationshipType:    ClassifyRelationship(senderEmail, history),
		ResponsePattern:     responsePattern(history),
		WritingStyleNotes:   AnalyzeWritingStyle(bodies(history)),
		UpdatedAt:           time.Now().UTC(),
	}
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
