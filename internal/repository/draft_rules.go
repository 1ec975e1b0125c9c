package repository

import (
	"fmt"

	"github.com/coltonheil/email-automation/internal/model"
)

// Lifecycle rules for drafts, kept as pure functions so the SQL closures in
// DraftRepository stay thin and the rules are testable without a database.

// allowedStatuses maps each action to the statuses a draft may be in when
// the action is applied. Absent actions are never allowed.
var allowedStatuses = map[string][]string{
	model.ActionApproved:    {model.DraftPending},
	model.ActionRejected:    {model.DraftPending},
	model.ActionDismissed:   {model.DraftPending},
	model.ActionSent:        {model.DraftApproved},
	model.ActionEdited:      {model.DraftPending, model.DraftApproved},
	model.ActionRegenerated: {model.DraftPending, model.DraftApproved},
	model.ActionRestored:    {model.DraftPending, model.DraftApproved},
	model.ActionRated:       {model.DraftApproved, model.DraftSent},
}

// checkTransition returns ErrInvalidTransition when a draft in its current
// status cannot undergo action.
func checkTransition(d *model.Draft, action string) error {
	for _, s := range allowedStatuses[action] {
		if d.Status == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, action)
}

// checkRating validates a feedback score. Only approved and sent drafts
// accept feedback, scores run 1 to 5.
func checkRating(d *model.Draft, score int) error {
	if score < 1 || score > 5 {
		return ErrInvalidRating
	}
	if err := checkTransition(d, model.ActionRated); err != nil {
		return ErrInvalidRating
	}
	return nil
}

// versionSnapshot is the draft_versions row to persist before an edit or
// regeneration replaces the live text.
type versionSnapshot struct {
	Number    int
	Text      string
	ModelUsed string
	CreatedBy string
}

// applyEdit validates the edit, archives the outgoing text and advances the
// draft in memory. Both version counters grow by exactly one; the returned
// snapshot carries the pre-edit text at the old current version.
func applyEdit(d *model.Draft, newText, by string) (versionSnapshot, error) {
	if err := checkTransition(d, model.ActionEdited); err != nil {
		return versionSnapshot{}, err
	}
	snap := versionSnapshot{
		Number:    d.CurrentVersion,
		Text:      d.Text(),
		ModelUsed: d.ModelUsed,
		CreatedBy: by,
	}
	d.EditedText = &newText
	d.CurrentVersion++
	d.TotalVersions++
	return snap, nil
}

// applyRegenerate is applyEdit for a fresh generation: the new text becomes
// the base draft text and any earlier edit is discarded.
func applyRegenerate(d *model.Draft, newText, modelUsed, by string) (versionSnapshot, error) {
	if err := checkTransition(d, model.ActionRegenerated); err != nil {
		return versionSnapshot{}, err
	}
	snap := versionSnapshot{
		Number:    d.CurrentVersion,
		Text:      d.Text(),
		ModelUsed: d.ModelUsed,
		CreatedBy: by,
	}
	d.DraftText = newText
	d.EditedText = nil
	d.ModelUsed = modelUsed
	d.CurrentVersion++
	d.TotalVersions++
	return snap, nil
}
