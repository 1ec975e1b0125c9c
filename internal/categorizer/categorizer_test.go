package categorizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyByKeywords(t *testing.T) {
	cases := []struct {
		name     string
		from     string
		subject  string
		body     string
		category string
		boost    int
	}{
		{"invoice", "accounts@client.example", "Invoice #1042 attached", "payment due on receipt", "financial", 10},
		{"ticket", "pat@corp.example", "Re: ticket 8831", "the issue persists after the fix", "support", 5},
		{"biz dev", "sam@agency.example", "Partnership proposal", "a collaboration opportunity for q4", "partnership", 15},
		{"digest", "staff@blog.example", "Weekly update", "unsubscribe at any time", "newsletter", -20},
		{"deadline", "lead@corp.example", "Action required: contract expires Friday", "final notice, respond by the deadline", "action_required", 25},
		{"password", "it@corp.example", "Suspicious login attempt", "reset your password now", "security", 20},
		{"follower", "fan@web.example", "Alex commented on your post", "and mentioned you in a reply", "social", -15},
		{"parcel", "store@shop.example", "Your order shipped", "tracking number inside, out for delivery soon", "shipping", 5},
		{"meeting", "pm@corp.example", "RSVP: planning meeting", "agenda and zoom link attached", "calendar", 10},
	}
	for _, tc := range cases {
		cat, boost := Classify(tc.from, tc.subject, tc.body)
		assert.Equal(t, tc.category, cat, tc.name)
		assert.Equal(t, tc.boost, boost, tc.name)
	}
}

func TestClassifyBySenderAddress(t *testing.T) {
	// empty subject and body, the sender address alone decides
	cat, boost := Classify("billing@stripe.com", "", "")
	assert.Equal(t, "financial", cat)
	assert.Equal(t, 10, boost)

	cat, _ = Classify("notifications@linkedin.com", "", "")
	assert.Equal(t, "social", cat)

	cat, _ = Classify("no-reply@substack.com", "", "")
	assert.Equal(t, "newsletter", cat)
}

func TestClassifyBestScoreWins(t *testing.T) {
	// "urgent"/"deadline" outweigh the lone financial keyword
	cat, boost := Classify("boss@corp.example",
		"Urgent: payment deadline today",
		"this is time sensitive and overdue")
	assert.Equal(t, "action_required", cat)
	assert.Equal(t, 25, boost)
}

func TestClassifyNoMatch(t *testing.T) {
	cat, boost := Classify("friend@example.com", "lunch plans", "are you free thursday")
	assert.Equal(t, CategoryOther, cat)
	assert.Equal(t, 0, boost)
}

func TestAdjustPriorityClamps(t *testing.T) {
	assert.Equal(t, 60, AdjustPriority(50, 10))
	assert.Equal(t, 30, AdjustPriority(50, -20))
	assert.Equal(t, 100, AdjustPriority(95, 25))
	assert.Equal(t, 0, AdjustPriority(10, -20))
}
