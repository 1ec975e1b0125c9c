package normalizer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeGmail(t *testing.T) {
	payload := []byte(`{
		"id": "msg-1",
		"threadId": "thread-1",
		"subject": "Quarterly invoice",
		"from": "Ana Morris <ana@supplier.example>",
		"to": "me@corp.example",
		"body": "Please find the invoice attached.",
		"snippet": "Please find the invoice",
		"labelIds": ["UNREAD", "IMPORTANT"],
		"internalDate": 1756300800000,
		"hasAttachments": true
	}`)

	email, err := Normalize(ProviderGmail, "acct-1", payload)
	require.NoError(t, err)

	assert.Equal(t, "gmail", email.Provider)
	assert.Equal(t, "acct-1", email.AccountID)
	assert.Equal(t, "msg-1", email.MessageID)
	assert.Equal(t, "ana@supplier.example", email.FromEmail)
	assert.Equal(t, "Ana Morris", email.FromName)
	assert.True(t, email.IsUnread)
	assert.True(t, email.IsImportant)
	assert.True(t, email.HasAttachments)
	assert.NotEmpty(t, email.DedupKey)
}

func TestNormalizeOutlook(t *testing.T) {
	payload := []byte(`{
		"id": "AAMk1",
		"conversationId": "conv-1",
		"subject": "Project deadline",
		"from": {"emailAddress": {"name": "Bo Chen", "address": "Bo.Chen@Partner.example"}},
		"toRecipients": [{"emailAddress": {"address": "me@corp.example"}}],
		"body": {"contentType": "html", "content": "<p>Hello,</p><p>The deadline moved.</p>"},
		"bodyPreview": "Hello, The deadline moved.",
		"isRead": false,
		"importance": "high",
		"receivedDateTime": "2026-08-27T09:30:00Z"
	}`)

	email, err := Normalize(ProviderOutlook, "acct-2", payload)
	require.NoError(t, err)

	assert.Equal(t, "bo.chen@partner.example", email.FromEmail)
	assert.True(t, email.IsUnread)
	assert.True(t, email.IsImportant)
	assert.NotContains(t, email.Body, "<p>")
	assert.Contains(t, email.Body, "The deadline moved.")
	assert.Equal(t, "Hello, The deadline moved.", email.Snippet)
}

func TestNormalizeInstantlyFallsBackToHTMLBody(t *testing.T) {
	payload := []byte(`{
		"id": "i-1",
		"subject": "Re: intro",
		"from_address_email": "LEAD@startup.example",
		"body_html": "<div>Happy to chat.</div>",
		"unread": true,
		"timestamp_email": "2026-08-27T10:00:00Z"
	}`)

	email, err := Normalize(ProviderInstantly, "acct-3", payload)
	require.NoError(t, err)
	assert.Equal(t, "lead@startup.example", email.FromEmail)
	assert.Equal(t, "Happy to chat.", email.Body)
}

func TestNormalizeMissingFields(t *testing.T) {
	var valErr *ValidationError

	_, err := Normalize(ProviderGmail, "a", []byte(`{"id":"x","subject":"s","internalDate":1756300800000}`))
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "from", valErr.Field)

	_, err = Normalize(ProviderGmail, "a", []byte(`{"id":"x","from":"p@q.example"}`))
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "received_at", valErr.Field)
}

func TestNormalizeUnknownProvider(t *testing.T) {
	_, err := Normalize("carrier-pigeon", "a", []byte(`{}`))
	require.Error(t, err)
}

func TestDedupKeyStableWithinMinute(t *testing.T) {
	base := time.Date(2026, 8, 27, 10, 15, 5, 0, time.UTC)
	later := base.Add(40 * time.Second)

	assert.Equal(t,
		DedupKey("Invoice", "a@b.example", base),
		DedupKey("invoice", "A@B.example", later),
		"case and sub-minute jitter must not change the key")

	assert.NotEqual(t,
		DedupKey("Invoice", "a@b.example", base),
		DedupKey("Invoice", "a@b.example", base.Add(2*time.Minute)))
}

func TestStripHTML(t *testing.T) {
	in := `<html><head><style>p{color:red}</style><script>alert(1)</script></head>` +
		`<body><!-- tracking --><p>Hello &amp; welcome</p><div>Second line</div></body></html>`
	out := StripHTML(in)

	assert.NotContains(t, out, "alert")
	assert.NotContains(t, out, "color:red")
	assert.NotContains(t, out, "tracking")
	assert.Contains(t, out, "Hello & welcome")
	assert.Contains(t, out, "Second line")
}

func TestCollapseNoise(t *testing.T) {
	url := "https://tracker.example/" + strings.Repeat("x", 120)
	blob := strings.Repeat("QUJD", 40)

	out := CollapseNoise("click " + url + " data " + blob + " end")
	assert.Contains(t, out, "[long-url]")
	assert.Contains(t, out, "[encoded-content]")
	assert.NotContains(t, out, "xxxx")
}

func TestTruncateAtWordBoundary(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 100))

	long := strings.Repeat("word ", 100)
	out := Truncate(long, 120)
	assert.LessOrEqual(t, len(out), 120)
	assert.True(t, strings.HasSuffix(out, "[...truncated...]"))
	assert.NotContains(t, out, "wor [") // no mid-word cut
}

func TestNormalizePrefersProviderSnippet(t *testing.T) {
	payload, _ := json.Marshal(GmailMessage{
		ID:           "m",
		From:         "x@y.example",
		Body:         strings.Repeat("body ", 200),
		Snippet:      "short preview",
		InternalDate: 1756300800000,
	})

	email, err := Normalize(ProviderGmail, "a", payload)
	require.NoError(t, err)
	assert.Equal(t, "short preview", email.Snippet)
}
