package sendercontext

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coltonheil/email-automation/internal/model"
)

func TestClassifyRelationshipOrder(t *testing.T) {
	// automated wins even for a vendor domain
	assert.Equal(t, model.RelationshipAutomated,
		ClassifyRelationship("noreply@github.com", nil))

	assert.Equal(t, model.RelationshipVendor,
		ClassifyRelationship("billing@stripe.com", nil))

	bizHistory := []HistoryEntry{
		{Subject: "Invoice for project phase 2"},
		{Subject: "Contract deadline next week"},
	}
	assert.Equal(t, model.RelationshipBusiness,
		ClassifyRelationship("pat@client.example", bizHistory))

	// fewer than three business keyword hits stays personal
	assert.Equal(t, model.RelationshipPersonal,
		ClassifyRelationship("pat@client.example", []HistoryEntry{{Subject: "Invoice attached"}}))

	assert.Equal(t, model.RelationshipPersonal,
		ClassifyRelationship("friend@gmail.example", nil))
}

func TestExtractTopics(t *testing.T) {
	subjects := []string{
		"Re: budget review for the quarter",
		"Budget approval needed",
		"Fwd: quarter planning and budget",
		"planning session",
	}

	topics := ExtractTopics(subjects, 5)
	assert.Equal(t, "budget", topics[0], "most frequent token first")
	assert.Contains(t, topics, "quarter")
	assert.Contains(t, topics, "planning")
	assert.NotContains(t, topics, "re", "stopwords dropped")
	assert.NotContains(t, topics, "for")
	assert.NotContains(t, topics, "the")
}

func TestExtractTopicsTieBreakFirstSeen(t *testing.T) {
	topics := ExtractTopics([]string{"alpha beta", "gamma delta"}, 2)
	assert.Equal(t, []string{"alpha", "beta"}, topics)
}

func TestExtractTopicsShortWordsDropped(t *testing.T) {
	topics := ExtractTopics([]string{"go to NY"}, 5)
	assert.Empty(t, topics)
}

func TestAnalyzeWritingStyle(t *testing.T) {
	assert.Equal(t, "professional", AnalyzeWritingStyle(nil))

	assert.Equal(t, "formal", AnalyzeWritingStyle([]string{
		"Dear team, please find the report attached. Kind regards, Morgan",
	}))

	assert.Equal(t, "casual", AnalyzeWritingStyle([]string{
		"hey! thanks! see you friday :)",
	}))

	// balanced tone with short sentences reads as concise
	assert.Equal(t, "concise", AnalyzeWritingStyle([]string{
		"Got it. Will do. Sending now.",
	}))
}

func TestUrgencyLevel(t *testing.T) {
	cases := []struct {
		name    string
		email   model.Email
		want    string
	}{
		{"score 90", model.Email{PriorityScore: 90}, UrgencyCritical},
		{"two critical keywords", model.Email{Subject: "urgent emergency", PriorityScore: 50}, UrgencyCritical},
		{"score 80", model.Email{PriorityScore: 80}, UrgencyHigh},
		{"two high keywords", model.Email{Subject: "important deadline", PriorityScore: 50}, UrgencyHigh},
		{"score 60", model.Email{PriorityScore: 60}, UrgencyNormal},
		{"score 59", model.Email{PriorityScore: 59}, UrgencyLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UrgencyLevel(&tc.email))
		})
	}
}

func TestBuildCapsHistoryAndSnippet(t *testing.T) {
	history := make([]HistoryEntry, 15)
	for i := range history {
		history[i] = HistoryEntry{Subject: "status update", PriorityScore: 60}
	}

	current := &model.Email{
		FromEmail:     "pm@agency.example",
		Subject:       "status",
		Snippet:       strings.Repeat("x", 500),
		PriorityScore: 70,
	}

	ctx := Build(current, nil, history)
	assert.Equal(t, HistoryLimit, ctx.RecentEmailCount)
	assert.Len(t, ctx.CurrentSnippet, snippetCap)
	assert.Equal(t, 50.0, ctx.AvgPriorityScore, "no profile falls back to neutral")
}

func TestBuildUsesProfile(t *testing.T) {
	profile := &model.SenderProfile{
		Name:                "Sam Ortiz",
		TotalEmailsReceived: 42,
		AvgPriorityScore:    71.5,
	}
	current := &model.Email{FromEmail: "sam@corp.example", PriorityScore: 85}

	ctx := Build(current, profile, nil)
	assert.Equal(t, "Sam Ortiz", ctx.SenderName)
	assert.Equal(t, 42, ctx.TotalEmailsReceived)
	assert.Equal(t, 71.5, ctx.AvgPriorityScore)
	assert.Equal(t, UrgencyHigh, ctx.UrgencyLevel)
}

func TestSummaryContainsKeySections(t *testing.T) {
	ctx := Build(&model.Email{
		FromEmail:     "sam@corp.example",
		Subject:       "Renewal terms",
		Snippet:       "about the renewal",
		PriorityScore: 65,
	}, &model.SenderProfile{Name: "Sam"}, []HistoryEntry{
		{Subject: "renewal pricing"}, {Subject: "renewal draft"}, {Subject: "intro"},
	})

	out := ctx.Summary()
	assert.Contains(t, out, "SENDER: Sam <sam@corp.example>")
	assert.Contains(t, out, "COMMON TOPICS: renewal")
	assert.Contains(t, out, "Subject: Renewal terms")
	assert.Contains(t, out, "Priority Score: 65/100")
	assert.NotContains(t, out, "about the renewal...\n", "preview is the final line")
}

func TestBuildProfileFromHistory(t *testing.T) {
	history := []HistoryEntry{
		{Subject: "invoice march", PriorityScore: 80},
		{Subject: "invoice april", PriorityScore: 60},
	}

	p := BuildProfile("Billing@Vendor.example", "Billing", 2, history, time.Time{})
	assert.Equal(t, "billing@vendor.example", p.EmailAddress)
	assert.Equal(t, 2, p.TotalEmailsReceived)
	assert.Equal(t, 70.0, p.AvgPriorityScore)
	assert.Equal(t, "invoice", p.CommonTopics[0])
}

func TestBuildProfileTotalBeyondHistoryWindow(t *testing.T) {
	// a prolific sender: 25 emails on record, only HistoryLimit in the window
	var history []HistoryEntry
	for i := 0; i < HistoryLimit; i++ {
		history = append(history, HistoryEntry{Subject: "status update", PriorityScore: 40})
	}

	p := BuildProfile("pm@corp.example", "PM", 25, history, time.Time{})
	assert.Equal(t, 25, p.TotalEmailsReceived)
	assert.Equal(t, 40.0, p.AvgPriorityScore, "average stays windowed")

	// a stale zero count never undercuts the history actually in hand
	p = BuildProfile("pm@corp.example", "PM", 0, history, time.Time{})
	assert.Equal(t, HistoryLimit, p.TotalEmailsReceived)
}
