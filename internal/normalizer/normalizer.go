package normalizer

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/coltonheil/email-automation/internal/model"
)

// Providers supported by the normalizer.
const (
	ProviderGmail     = "gmail"
	ProviderOutlook   = "outlook"
	ProviderInstantly = "instantly"
)

// ValidationError reports a raw message missing a required field. The caller
// skips the message and continues the batch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: field %s %s", e.Field, e.Reason)
}

// GmailMessage is the wire shape returned by the gmail provider endpoint.
type GmailMessage struct {
	ID             string   `json:"id"`
	ThreadID       string   `json:"threadId"`
	Subject        string   `json:"subject"`
	From           string   `json:"from"`
	To             string   `json:"to"`
	CC             string   `json:"cc"`
	Body           string   `json:"body"`
	Snippet        string   `json:"snippet"`
	LabelIDs       []string `json:"labelIds"`
	InternalDate   int64    `json:"internalDate"` // epoch 毫秒
	HasAttachments bool     `json:"hasAttachments"`
}

type outlookRecipient struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

// OutlookMessage is the wire shape returned by the outlook provider endpoint.
type OutlookMessage struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversationId"`
	Subject        string             `json:"subject"`
	From           outlookRecipient   `json:"from"`
	ToRecipients   []outlookRecipient `json:"toRecipients"`
	CcRecipients   []outlookRecipient `json:"ccRecipients"`
	Body           struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	BodyPreview      string    `json:"bodyPreview"`
	IsRead           bool      `json:"isRead"`
	Importance       string    `json:"importance"`
	HasAttachments   bool      `json:"hasAttachments"`
	Categories       []string  `json:"categories"`
	ReceivedDateTime time.Time `json:"receivedDateTime"`
}

// InstantlyMessage is the wire shape returned by the instantly provider endpoint.
type InstantlyMessage struct {
	ID             string    `json:"id"`
	ThreadID       string    `json:"thread_id"`
	Subject        string    `json:"subject"`
	FromEmail      string    `json:"from_address_email"`
	FromName       string    `json:"from_address_name"`
	ToEmails       string    `json:"to_address_email_list"`
	BodyText       string    `json:"body_text"`
	BodyHTML       string    `json:"body_html"`
	Unread         bool      `json:"unread"`
	TimestampEmail time.Time `json:"timestamp_email"`
}

// Normalize decodes a provider-specific raw payload into the canonical Email
// record. Unknown providers are an error; a message missing its from-address
// or timestamp yields a ValidationError.
func Normalize(provider, accountID string, payload json.RawMessage) (*model.Email, error) {
	switch provider {
	case ProviderGmail:
		var raw GmailMessage
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, fmt.Errorf("decode gmail message: %w", err)
		}
		return normalizeGmail(accountID, &raw)
	case ProviderOutlook:
		var raw OutlookMessage
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, fmt.Errorf("decode outlook message: %w", err)
		}
		return normalizeOutlook(accountID, &raw)
	case ProviderInstantly:
		var raw InstantlyMessage
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, fmt.Errorf("decode instantly message: %w", err)
		}
		return normalizeInstantly(accountID, &raw)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

func normalizeGmail(accountID string, raw *GmailMessage) (*model.Email, error) {
	fromEmail, fromName := parseAddress(raw.From)
	receivedAt := time.UnixMilli(raw.InternalDate).UTC()
	if raw.InternalDate == 0 {
		receivedAt = time.Time{}
	}

	e := &model.Email{
		Provider:       ProviderGmail,
		AccountID:      accountID,
		MessageID:      raw.ID,
		ThreadID:       raw.ThreadID,
		Subject:        strings.TrimSpace(raw.Subject),
		FromEmail:      fromEmail,
		FromName:       fromName,
		ToEmail:        raw.To,
		CC:             raw.CC,
		Labels:         raw.LabelIDs,
		IsUnread:       hasLabel(raw.LabelIDs, "UNREAD"),
		IsImportant:    hasLabel(raw.LabelIDs, "IMPORTANT"),
		HasAttachments: raw.HasAttachments,
		ReceivedAt:     receivedAt,
	}
	fillBody(e, raw.Body, raw.Snippet)
	return finish(e)
}

func normalizeOutlook(accountID string, raw *OutlookMessage) (*model.Email, error) {
	body := raw.Body.Content
	if strings.EqualFold(raw.Body.ContentType, "html") {
		body = StripHTML(body)
	}

	e := &model.Email{
		Provider:       ProviderOutlook,
		AccountID:      accountID,
		MessageID:      raw.ID,
		ThreadID:       raw.ConversationID,
		Subject:        strings.TrimSpace(raw.Subject),
		FromEmail:      strings.ToLower(strings.TrimSpace(raw.From.EmailAddress.Address)),
		FromName:       raw.From.EmailAddress.Name,
		ToEmail:        joinRecipients(raw.ToRecipients),
		CC:             joinRecipients(raw.CcRecipients),
		Labels:         raw.Categories,
		IsUnread:       !raw.IsRead,
		IsImportant:    strings.EqualFold(raw.Importance, "high"),
		HasAttachments: raw.HasAttachments,
		ReceivedAt:     raw.ReceivedDateTime.UTC(),
	}
	fillBody(e, body, raw.BodyPreview)
	return finish(e)
}

func normalizeInstantly(accountID string, raw *InstantlyMessage) (*model.Email, error) {
	body := raw.BodyText
	if body == "" && raw.BodyHTML != "" {
		body = StripHTML(raw.BodyHTML)
	}

	e := &model.Email{
		Provider:   ProviderInstantly,
		AccountID:  accountID,
		MessageID:  raw.ID,
		ThreadID:   raw.ThreadID,
		Subject:    strings.TrimSpace(raw.Subject),
		FromEmail:  strings.ToLower(strings.TrimSpace(raw.FromEmail)),
		FromName:   raw.FromName,
		ToEmail:    raw.ToEmails,
		IsUnread:   raw.Unread,
		ReceivedAt: raw.TimestampEmail.UTC(),
	}
	fillBody(e, body, "")
	return finish(e)
}

// fillBody sets body and snippet. A provider-supplied preview wins over the
// full body for the snippet to keep stored payloads small.
func fillBody(e *model.Email, body, preview string) {
	e.Body = CleanBody(body)
	snippet := preview
	if snippet == "" {
		snippet = e.Body
	}
	e.Snippet = Truncate(CollapseNoise(strings.TrimSpace(snippet)), MaxSnippetLen)
}

// finish validates required fields, assigns the stable id and stamps the
// dedup key.
func finish(e *model.Email) (*model.Email, error) {
	if e.FromEmail == "" {
		return nil, &ValidationError{Field: "from", Reason: "is missing"}
	}
	if e.ReceivedAt.IsZero() {
		return nil, &ValidationError{Field: "received_at", Reason: "is missing"}
	}
	e.ID = e.Provider + ":" + e.MessageID
	e.FetchedAt = time.Now().UTC()
	e.DedupKey = DedupKey(e.Subject, e.FromEmail, e.ReceivedAt)
	return e, nil
}

// DedupKey fingerprints a message by subject, sender and minute-bucketed
// timestamp. Two messages with equal keys are the same logical email seen
// through different polls or providers.
func DedupKey(subject, from string, receivedAt time.Time) string {
	bucket := receivedAt.UTC().Truncate(time.Minute).Format(time.RFC3339)
	raw := strings.ToLower(subject) + "|" + strings.ToLower(from) + "|" + bucket
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func parseAddress(s string) (email, name string) {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s)), ""
	}
	return strings.ToLower(addr.Address), addr.Name
}

func joinRecipients(rs []outlookRecipient) string {
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		if addr := r.EmailAddress.Address; addr != "" {
			parts = append(parts, strings.ToLower(addr))
		}
	}
	return strings.Join(parts, ", ")
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
