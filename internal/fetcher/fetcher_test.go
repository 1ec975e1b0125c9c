package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coltonheil/email-automation/config"
)

func TestFetchParsesMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/gmail/messages", r.URL.Path)
		assert.Equal(t, "acct-1", r.URL.Query().Get("account_id"))
		assert.Equal(t, "recent", r.URL.Query().Get("mode"))
		assert.Equal(t, "6", r.URL.Query().Get("hours"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		w.Write([]byte(`{"messages": [{"id": "m1"}, {"id": "m2"}]}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.ProviderConfig{BaseURL: srv.URL, APIKey: "k"})
	msgs, err := f.Fetch(context.Background(), Request{
		AccountID:   "acct-1",
		Provider:    "gmail",
		Mode:        ModeRecent,
		RecentHours: 6,
		Limit:       20,
	})
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestFetchEmptyResultIsFine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"messages": []}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.ProviderConfig{BaseURL: srv.URL})
	msgs, err := f.Fetch(context.Background(), Request{AccountID: "a", Provider: "gmail", Mode: ModeUnread})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestFetch5xxIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.ProviderConfig{BaseURL: srv.URL})
	_, err := f.Fetch(context.Background(), Request{AccountID: "a", Provider: "gmail", Mode: ModeAll})

	var transient *TransientProviderError
	assert.True(t, errors.As(err, &transient))
}

func TestFetch4xxIsNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.ProviderConfig{BaseURL: srv.URL})
	_, err := f.Fetch(context.Background(), Request{AccountID: "a", Provider: "gmail", Mode: ModeAll})

	require.Error(t, err)
	var transient *TransientProviderError
	assert.False(t, errors.As(err, &transient))
}
