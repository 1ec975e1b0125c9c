package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coltonheil/email-automation/internal/model"
)

var now = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

// plainEmail is read two days ago so no flag or recency contribution applies.
func plainEmail() *model.Email {
	return &model.Email{
		Subject:    "lunch plans",
		FromEmail:  "friend@example.com",
		Snippet:    "are you free thursday",
		IsUnread:   false,
		ReceivedAt: now.Add(-48 * time.Hour),
	}
}

func TestScoreBaseline(t *testing.T) {
	s := New(Config{})
	assert.Equal(t, 50, s.Score(plainEmail(), now))
}

func TestScoreBoosts(t *testing.T) {
	s := New(Config{VIPSenders: []string{"boss@corp.example"}})

	e := plainEmail()
	e.FromEmail = "boss@corp.example"
	assert.Equal(t, 80, s.Score(e, now), "VIP sender adds 30")

	e = plainEmail()
	e.Subject = "URGENT: server down"
	assert.Equal(t, 70, s.Score(e, now), "urgency keyword adds 20")

	e = plainEmail()
	e.IsImportant = true
	assert.Equal(t, 65, s.Score(e, now))

	e = plainEmail()
	e.IsUnread = true
	assert.Equal(t, 60, s.Score(e, now))

	e = plainEmail()
	e.HasAttachments = true
	assert.Equal(t, 55, s.Score(e, now))
}

func TestScoreKeywordNeedsWordBoundary(t *testing.T) {
	s := New(Config{})

	e := plainEmail()
	e.Subject = "detergent restock" // contains "urgent" as substring only
	assert.Equal(t, 50, s.Score(e, now))
}

func TestScoreRecencyTiers(t *testing.T) {
	s := New(Config{})

	cases := []struct {
		age  time.Duration
		want int
	}{
		{30 * time.Minute, 65},
		{3 * time.Hour, 60},
		{12 * time.Hour, 55},
		{48 * time.Hour, 50},
	}
	for _, tc := range cases {
		e := plainEmail()
		e.ReceivedAt = now.Add(-tc.age)
		assert.Equal(t, tc.want, s.Score(e, now), "age %s", tc.age)
	}
}

func TestScorePenalties(t *testing.T) {
	s := New(Config{})

	e := plainEmail()
	e.FromEmail = "noreply@shop.example"
	e.Subject = "unsubscribe from our marketing list"
	// spam (two indicators) -30, newsletter wording -15
	assert.Equal(t, 5, s.Score(e, now))

	e = plainEmail()
	e.ReceivedAt = now.Add(-8 * 24 * time.Hour)
	assert.Equal(t, 30, s.Score(e, now), "older than 7 days loses 20")
}

func TestScoreSingleSpamIndicatorIsNotSpam(t *testing.T) {
	s := New(Config{})

	e := plainEmail()
	e.FromEmail = "noreply@bank.example"
	assert.Equal(t, 50, s.Score(e, now))
}

func TestScoreClamped(t *testing.T) {
	s := New(Config{VIPSenders: []string{"boss@corp.example"}})

	e := &model.Email{
		Subject:        "URGENT deadline: invoice payment",
		FromEmail:      "boss@corp.example",
		IsImportant:    true,
		IsUnread:       true,
		HasAttachments: true,
		ReceivedAt:     now.Add(-10 * time.Minute),
	}
	assert.Equal(t, 100, s.Score(e, now))

	e = plainEmail()
	e.FromEmail = "noreply@promos.example"
	e.Subject = "newsletter: unsubscribe anytime marketing promotional"
	e.ReceivedAt = now.Add(-30 * 24 * time.Hour)
	assert.Equal(t, 0, s.Score(e, now))
}

func TestCategorizeBoundaries(t *testing.T) {
	assert.Equal(t, model.PriorityUrgent, Categorize(80))
	assert.Equal(t, model.PriorityNormal, Categorize(79))
	assert.Equal(t, model.PriorityNormal, Categorize(40))
	assert.Equal(t, model.PriorityLow, Categorize(39))
	assert.Equal(t, model.PriorityUrgent, Categorize(100))
	assert.Equal(t, model.PriorityLow, Categorize(0))
}

func TestApplySetsDerivedFields(t *testing.T) {
	s := New(Config{})
	e := plainEmail()
	e.IsUnread = true
	e.IsImportant = true

	s.Apply(e, now)
	assert.Equal(t, 75, e.PriorityScore)
	assert.Equal(t, model.PriorityNormal, e.PriorityCategory)
	assert.Equal(t, "other", e.Category)
}

func TestApplyCategoryBoostMovesPriority(t *testing.T) {
	s := New(Config{})

	e := plainEmail()
	e.IsUnread = true
	e.IsImportant = true
	e.Subject = "Reminder: project sync meeting"
	e.Body = "Join meeting via zoom, agenda attached."

	s.Apply(e, now)
	assert.Equal(t, "calendar", e.Category)
	// 75 base plus the calendar boost crosses the urgent threshold
	assert.Equal(t, 85, e.PriorityScore)
	assert.Equal(t, model.PriorityUrgent, e.PriorityCategory)
}
