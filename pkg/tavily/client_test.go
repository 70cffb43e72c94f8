package tavily

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	var got SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"https://acme.example","results":[{"url":"https://acme.example/about","content":"Acme builds robots"}],"response_time":1.2}`))
	}))
	defer srv.Close()

	c := NewClient("tvly-key", WithBaseURL(srv.URL+"/"))
	resp, err := c.Search(context.Background(), SearchRequest{Query: "https://acme.example"})
	require.NoError(t, err)

	assert.Equal(t, "https://acme.example", got.Query)
	assert.Equal(t, "advanced", got.SearchDepth)
	assert.Equal(t, 5, got.MaxResults)
	assert.JSONEq(t, `[{"url":"https://acme.example/about","content":"Acme builds robots"}]`, string(resp.Results))
}

func TestSearch_RequestOverridesDefaults(t *testing.T) {
	var got SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithSearchDepth("basic"), WithMaxResults(3))
	_, err := c.Search(context.Background(), SearchRequest{Query: "q", MaxResults: 10})
	require.NoError(t, err)
	assert.Equal(t, "basic", got.SearchDepth)
	assert.Equal(t, 10, got.MaxResults)
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"detail":"bad key"}`, wantErr: "unexpected status 401"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, wantErr: "unexpected status 429"},
		{name: "malformed", status: http.StatusOK, body: `{nope`, wantErr: "unmarshal response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("k", WithBaseURL(srv.URL), WithRetry(1, time.Millisecond)).Search(context.Background(), SearchRequest{Query: "q"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSearch_StatusIsInspectable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL), WithRetry(1, time.Millisecond)).Search(context.Background(), SearchRequest{Query: "q"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestSearch_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"query":"q","results":[]}`))
	}))
	defer srv.Close()

	resp, err := NewClient("k", WithBaseURL(srv.URL), WithRetry(3, time.Millisecond)).
		Search(context.Background(), SearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "q", resp.Query)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&APIError{StatusCode: 503}))
	assert.True(t, retryable(&APIError{StatusCode: 429}))
	assert.False(t, retryable(&APIError{StatusCode: 400}))
	assert.False(t, retryable(errors.New("decode failure")))
}
