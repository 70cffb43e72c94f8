package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-intel/internal/resilience"
)

var fastPolicy = resilience.Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

func TestScrape(t *testing.T) {
	var got ScrapeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"# Acme","metadata":{"title":"Acme Robotics","sourceURL":"https://acme.example","statusCode":200}}}`))
	}))
	defer srv.Close()

	c := NewClient("fc-key", WithBaseURL(srv.URL))
	resp, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://acme.example", OnlyMainContent: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"markdown"}, got.Formats)
	assert.True(t, got.OnlyMainContent)
	assert.Equal(t, "# Acme", resp.Data.Markdown)
	assert.Equal(t, "Acme Robotics", resp.Data.Metadata.Title)
}

func TestScrape_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "payment required", status: http.StatusPaymentRequired, body: `{"error":"credits"}`, wantErr: "firecrawl: HTTP 402"},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantErr: "firecrawl: HTTP 500"},
		{name: "bad json", status: http.StatusOK, body: `{`, wantErr: "decode response"},
		{name: "unsuccessful", status: http.StatusOK, body: `{"success":false,"error":"blocked"}`, wantErr: "unsuccessful: blocked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("k", WithBaseURL(srv.URL), WithRetryPolicy(fastPolicy)).Scrape(context.Background(), ScrapeRequest{URL: "https://x.example"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAPIError_Message(t *testing.T) {
	t.Parallel()
	err := &APIError{StatusCode: 429, Body: "slow down"}
	assert.Equal(t, "firecrawl: HTTP 429: slow down", err.Error())
}

func TestScrape_RetryCounts(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{name: "rate limited retried", status: http.StatusTooManyRequests, wantCalls: 2},
		{name: "bad gateway retried", status: http.StatusBadGateway, wantCalls: 2},
		{name: "payment required not retried", status: http.StatusPaymentRequired, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewClient("k", WithBaseURL(srv.URL), WithRetryPolicy(fastPolicy)).
				Scrape(context.Background(), ScrapeRequest{URL: "https://x.example"})
			require.Error(t, err)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}
