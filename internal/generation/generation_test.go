package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coltonheil/email-automation/internal/model"
	"github.com/coltonheil/email-automation/internal/sendercontext"
)

func promptContext() *sendercontext.Context {
	return sendercontext.Build(&model.Email{
		FromEmail:     "sam@corp.example",
		Subject:       "Renewal terms",
		Snippet:       "can we revisit pricing before friday",
		PriorityScore: 82,
	}, &model.SenderProfile{Name: "Sam Ortiz"}, nil)
}

func TestBuildPromptFraming(t *testing.T) {
	p := BuildPrompt(promptContext(), "", "")

	assert.Contains(t, p, "NEVER send emails directly")
	assert.Contains(t, p, "review and manually send")
	assert.Contains(t, p, "Draft a professional response")
	assert.Contains(t, p, "Subject: Renewal terms")
	assert.Contains(t, p, "Does NOT include a signature")
	assert.Contains(t, p, "Do NOT include 'Subject:' line")
	assert.True(t, strings.HasSuffix(p, "no subject line, no signature):"))
}

func TestBuildPromptIncludesContextAndInstructions(t *testing.T) {
	p := BuildPrompt(promptContext(), "concise", "mention the new SLA")

	assert.Contains(t, p, "SENDER: Sam Ortiz <sam@corp.example>")
	assert.Contains(t, p, "Draft a concise response")
	assert.Contains(t, p, "Additional instructions: mention the new SLA")
	assert.Contains(t, p, "URGENCY: HIGH")
}

func TestBuildPromptEmptySubject(t *testing.T) {
	ctx := promptContext()
	ctx.CurrentSubject = ""
	assert.Contains(t, BuildPrompt(ctx, "", ""), "Subject: (no subject)")
}

func TestBuildEditPrompt(t *testing.T) {
	p := BuildEditPrompt("Hi Sam,\n\nSounds good.", "make it more formal")

	assert.Contains(t, p, "Hi Sam,")
	assert.Contains(t, p, "make it more formal")
	assert.Contains(t, p, "NEVER send emails directly")
	assert.Contains(t, p, "Return ONLY the revised email body text:")
}

func TestCalculateCost(t *testing.T) {
	// 1M in + 1M out at list price
	assert.InDelta(t, 0.75, CalculateCost("gpt-4o-mini", 1_000_000, 1_000_000), 1e-9)
	assert.InDelta(t, 20.0, CalculateCost("gpt-4o", 1_000_000, 1_000_000), 1e-9)
	assert.InDelta(t, 0.0015, CalculateCost("gpt-4o-mini", 10_000, 0), 1e-9)
	assert.Zero(t, CalculateCost("mystery-model", 1000, 1000))
}
