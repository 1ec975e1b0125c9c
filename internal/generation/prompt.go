package generation

import (
	"fmt"
	"strings"

	"github.com/coltonheil/email-automation/internal/sendercontext"
)

// BuildPrompt assembles the generation prompt for a reply draft. The framing
// makes explicit that drafts are never sent directly; the user reviews and
// sends manually.
func BuildPrompt(ctx *sendercontext.Context, userStyle, additionalInstructions string) string {
	if userStyle == "" {
		userStyle = "professional"
	}

	subject := ctx.CurrentSubject
	if subject == "" {
		subject = "(no subject)"
	}

	parts := []string{
		"You are helping draft an email response. You will NEVER send emails directly.",
		"Your role is to generate a draft that the user will review and manually send.",
		"",
		"=== SENDER CONTEXT ===",
		ctx.Summary(),
		"",
		"=== EMAIL TO RESPOND TO ===",
		fmt.Sprintf("Subject: %s", subject),
		"",
		ctx.CurrentSnippet,
		"",
		"=== YOUR TASK ===",
		fmt.Sprintf("Draft a %s response that:", userStyle),
		"1. Addresses the sender's request or question directly",
		"2. Matches the relationship type and writing style noted above",
		"3. Is appropriate for the urgency level",
		"4. Sounds natural and authentic",
		"5. Does NOT include a signature (user will add their own)",
		"",
	}

	if additionalInstructions != "" {
		parts = append(parts, fmt.Sprintf("Additional instructions: %s", additionalInstructions), "")
	}

	parts = append(parts,
		"IMPORTANT GUIDELINES:",
		"- Do NOT include 'Subject:' line (this is a reply)",
		"- Do NOT include signature/sign-off with name (user adds this)",
		"- Keep it brief and actionable",
		"- Match the sender's communication style",
		"- Be helpful and clear",
		"",
		"Generate ONLY the email body text (no metadata, no subject line, no signature):",
	)

	return strings.Join(parts, "\n")
}

// BuildEditPrompt assembles the prompt for revising an existing draft per a
// user instruction.
func BuildEditPrompt(draftText, instruction string) string {
	parts := []string{
		"You are revising an email draft. You will NEVER send emails directly.",
		"",
		"=== CURRENT DRAFT ===",
		draftText,
		"",
		"=== EDIT INSTRUCTION ===",
		instruction,
		"",
		"Apply the instruction to the draft. Keep everything else unchanged.",
		"Do NOT add a subject line or signature.",
		"",
		"Return ONLY the revised email body text:",
	}
	return strings.Join(parts, "\n")
}
