package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coltonheil/email-automation/internal/model"
)

func pendingDraft() *model.Draft {
	return &model.Draft{
		ID:             1,
		EmailID:        "acct-main:msg-1",
		DraftText:      "Hi, thanks for reaching out.",
		ModelUsed:      "gpt-4o-mini",
		Status:         model.DraftPending,
		CurrentVersion: 1,
		TotalVersions:  1,
	}
}

func TestCheckTransitionTable(t *testing.T) {
	cases := []struct {
		status  string
		action  string
		allowed bool
	}{
		{model.DraftPending, model.ActionApproved, true},
		{model.DraftPending, model.ActionRejected, true},
		{model.DraftPending, model.ActionDismissed, true},
		{model.DraftPending, model.ActionEdited, true},
		{model.DraftPending, model.ActionSent, false},
		{model.DraftApproved, model.ActionSent, true},
		{model.DraftApproved, model.ActionEdited, true},
		{model.DraftApproved, model.ActionApproved, false},
		{model.DraftSent, model.ActionApproved, false},
		{model.DraftSent, model.ActionEdited, false},
		{model.DraftSent, model.ActionRegenerated, false},
		{model.DraftRejected, model.ActionApproved, false},
		{model.DraftDismissed, model.ActionEdited, false},
	}
	for _, tc := range cases {
		err := checkTransition(&model.Draft{Status: tc.status}, tc.action)
		if tc.allowed {
			assert.NoError(t, err, "%s -> %s", tc.status, tc.action)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tc.status, tc.action)
		}
	}
}

func TestCheckTransitionSentDraftCannotBeApproved(t *testing.T) {
	d := pendingDraft()
	d.Status = model.DraftSent

	err := checkTransition(d, model.ActionApproved)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "sent -> approved")
}

func TestCheckRating(t *testing.T) {
	approved := &model.Draft{Status: model.DraftApproved}
	sent := &model.Draft{Status: model.DraftSent}
	pending := &model.Draft{Status: model.DraftPending}

	assert.NoError(t, checkRating(approved, 1))
	assert.NoError(t, checkRating(approved, 5))
	// sent drafts still accept feedback
	assert.NoError(t, checkRating(sent, 3))

	assert.ErrorIs(t, checkRating(approved, 0), ErrInvalidRating)
	assert.ErrorIs(t, checkRating(approved, 6), ErrInvalidRating)
	assert.ErrorIs(t, checkRating(pending, 3), ErrInvalidRating)
}

func TestApplyEditVersionAccounting(t *testing.T) {
	d := pendingDraft()
	original := d.DraftText

	var snaps []versionSnapshot
	for i, text := range []string{"edit one", "edit two", "edit three"} {
		snap, err := applyEdit(d, text, model.ActorUser)
		require.NoError(t, err, "edit %d", i+1)
		snaps = append(snaps, snap)
	}

	// three edits of a version-1 draft leave it at version 4
	assert.Equal(t, 4, d.CurrentVersion)
	assert.Equal(t, 4, d.TotalVersions)
	assert.Equal(t, "edit three", d.Text())
	assert.Equal(t, original, d.DraftText)

	require.Len(t, snaps, 3)
	assert.Equal(t, 1, snaps[0].Number)
	assert.Equal(t, original, snaps[0].Text)
	assert.Equal(t, 2, snaps[1].Number)
	assert.Equal(t, "edit one", snaps[1].Text)
	assert.Equal(t, 3, snaps[2].Number)
	assert.Equal(t, "edit two", snaps[2].Text)
	for _, s := range snaps {
		assert.Equal(t, model.ActorUser, s.CreatedBy)
	}
}

func TestApplyEditRejectsTerminalDraft(t *testing.T) {
	d := pendingDraft()
	d.Status = model.DraftSent

	_, err := applyEdit(d, "too late", model.ActorUser)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 1, d.TotalVersions)
}

func TestApplyRegenerateReplacesBaseText(t *testing.T) {
	d := pendingDraft()
	edited := "manual touch-up"
	d.EditedText = &edited

	snap, err := applyRegenerate(d, "fresh generation", "gpt-4o", model.ActorSystem)
	require.NoError(t, err)

	// the live (edited) text is what gets archived
	assert.Equal(t, 1, snap.Number)
	assert.Equal(t, edited, snap.Text)
	assert.Equal(t, "gpt-4o-mini", snap.ModelUsed)

	assert.Equal(t, "fresh generation", d.DraftText)
	assert.Nil(t, d.EditedText)
	assert.Equal(t, "gpt-4o", d.ModelUsed)
	assert.Equal(t, 2, d.CurrentVersion)
	assert.Equal(t, 2, d.TotalVersions)
}
