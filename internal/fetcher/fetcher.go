// Package fetcher pulls raw messages from the mail-provider gateway. The
// gateway is treated as slow and unreliable: partial or empty results are
// fine, transient failures are typed so the caller can retry.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/coltonheil/email-automation/config"
)

// Fetch modes.
const (
	ModeUnread = "unread"
	ModeRecent = "recent"
	ModeAll    = "all"
)

// Request describes one fetch against a provider account.
type Request struct {
	AccountID   string
	Provider    string
	Mode        string
	RecentHours int // only used with ModeRecent
	Limit       int
}

// TransientProviderError marks a failure worth retrying (5xx, timeout).
type TransientProviderError struct {
	Err error
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("transient provider error: %v", e.Err)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

// Fetcher retrieves raw provider messages for normalization.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]json.RawMessage, error)
}

// HTTPFetcher talks to the provider gateway over HTTP.
type HTTPFetcher struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPFetcher(cfg config.ProviderConfig) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second, // 拉取大邮箱可能很慢
		},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, r Request) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("account_id", r.AccountID)
	q.Set("mode", r.Mode)
	if r.Mode == ModeRecent && r.RecentHours > 0 {
		q.Set("hours", strconv.Itoa(r.RecentHours))
	}
	if r.Limit > 0 {
		q.Set("limit", strconv.Itoa(r.Limit))
	}

	endpoint := fmt.Sprintf("%s/v1/%s/messages?%s", f.baseURL, r.Provider, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		// 网络错误和超时都视为可重试
		return nil, &TransientProviderError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &TransientProviderError{Err: fmt.Errorf("provider gateway 5xx: %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider gateway error: %d", resp.StatusCode)
	}

	var payload struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	return payload.Messages, nil
}
