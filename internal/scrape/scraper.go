// Package scrape renders a competitor page to markdown through an ordered
// chain of providers, falling through on failure.
package scrape

import "context"

// Result holds a scraped page with the provider that produced it.
type Result struct {
	URL      string
	Title    string
	Markdown string
	Source   string // e.g. "jina", "firecrawl", "local_http"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
