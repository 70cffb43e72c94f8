// Package fetcher provides a polite HTTP page fetcher with per-host
// adaptive rate limiting and retry.
package fetcher

import "context"

// Fetcher downloads remote pages.
type Fetcher interface {
	// FetchPage fetches the URL and returns its body, capped at the
	// configured maximum size.
	FetchPage(ctx context.Context, url string) (*Page, error)
}

// Page is a fetched document. URL is the address after redirects.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}
