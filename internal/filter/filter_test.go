package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coltonheil/email-automation/internal/model"
)

func testRules() *Rules {
	r := DefaultRules()
	r.AlwaysDraft.Emails = []string{"ceo@corp.example"}
	r.AlwaysDraft.Domains = []string{"bigclient.example"}
	return r
}

func TestEvaluateDefaultIsDraft(t *testing.T) {
	f := New(testRules())

	d := f.Evaluate(&model.Email{FromEmail: "pat@somewhere.example", PriorityScore: 50}, model.RelationshipPersonal)
	assert.True(t, d.Draft)
	assert.Equal(t, "OK", d.Reason)
}

func TestEvaluateSkipRules(t *testing.T) {
	f := New(testRules())

	d := f.Evaluate(&model.Email{FromEmail: "no-reply@shop.example", PriorityScore: 50}, model.RelationshipPersonal)
	assert.False(t, d.Draft)
	assert.Equal(t, "no-reply email", d.Reason)

	d = f.Evaluate(&model.Email{FromEmail: "news@mailchimp.com", PriorityScore: 50}, model.RelationshipPersonal)
	assert.False(t, d.Draft)

	d = f.Evaluate(&model.Email{FromEmail: "bot@service.example", PriorityScore: 50}, model.RelationshipAutomated)
	assert.False(t, d.Draft)
	assert.Contains(t, d.Reason, "automated")
}

func TestEvaluateAlwaysDraftBeatsSkip(t *testing.T) {
	f := New(testRules())

	// VIP address wins even though the relationship is automated
	d := f.Evaluate(&model.Email{FromEmail: "ceo@corp.example", PriorityScore: 10}, model.RelationshipAutomated)
	assert.True(t, d.Draft)

	d = f.Evaluate(&model.Email{FromEmail: "someone@bigclient.example", PriorityScore: 10}, model.RelationshipAutomated)
	assert.True(t, d.Draft)
}

func TestEvaluatePriorityThresholdOverride(t *testing.T) {
	f := New(testRules())

	d := f.Evaluate(&model.Email{FromEmail: "noreply@alerts.example", PriorityScore: 95}, model.RelationshipAutomated)
	assert.True(t, d.Draft)

	d = f.Evaluate(&model.Email{FromEmail: "noreply@alerts.example", PriorityScore: 89}, model.RelationshipAutomated)
	assert.False(t, d.Draft, "below threshold skip rules apply")
}

func TestEvaluateCriticalKeywordOverride(t *testing.T) {
	f := New(testRules())

	d := f.Evaluate(&model.Email{
		FromEmail:     "noreply@monitoring.example",
		Subject:       "URGENT: disk full",
		PriorityScore: 50,
	}, model.RelationshipAutomated)
	assert.True(t, d.Draft)
	assert.Contains(t, d.Reason, "critical keywords")
}

func TestMatchesPatternWildcards(t *testing.T) {
	assert.True(t, matchesPattern("no-reply@x.example", []string{"no-reply@*"}))
	assert.True(t, matchesPattern("bot@ops.example", []string{"*@ops.example"}))
	assert.True(t, matchesPattern("exact@a.example", []string{"exact@a.example"}))
	assert.False(t, matchesPattern("reply@x.example", []string{"no-reply@*"}))
	assert.False(t, matchesPattern("bot@ops.example.org", []string{"*@ops.example"}))
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()

	// missing file falls back to defaults
	r, err := LoadRules(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 90, r.AlwaysDraft.PriorityThreshold)

	// malformed file is an error
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{nope"), 0o644))
	_, err = LoadRules(bad)
	assert.Error(t, err)

	good := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
		"skip_drafting": {"emails": ["digest@*"], "domains": [], "relationship_types": []},
		"always_draft": {"emails": [], "domains": [], "priority_threshold": 75},
		"override": {"critical_keywords": []}
	}`), 0o644))

	r, err = LoadRules(good)
	require.NoError(t, err)
	assert.Equal(t, []string{"digest@*"}, r.SkipDrafting.Emails)
	assert.Equal(t, 75, r.AlwaysDraft.PriorityThreshold)
}

func TestReloadSwapsRules(t *testing.T) {
	f := New(testRules())
	email := &model.Email{FromEmail: "digest@weekly.example", PriorityScore: 50}

	assert.True(t, f.Evaluate(email, model.RelationshipPersonal).Draft)

	updated := testRules()
	updated.SkipDrafting.Emails = append(updated.SkipDrafting.Emails, "digest@*")
	f.Reload(updated)

	assert.False(t, f.Evaluate(email, model.RelationshipPersonal).Draft)
}
