package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-intel/internal/resilience"
	"github.com/sells-group/competitor-intel/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as a Scraper for single-page scrapes.
type FirecrawlAdapter struct {
	client  firecrawl.Client
	breaker *resilience.CircuitBreaker
}

// NewFirecrawlAdapter creates a FirecrawlAdapter from a Firecrawl client.
func NewFirecrawlAdapter(client firecrawl.Client) *FirecrawlAdapter {
	return &FirecrawlAdapter{
		client:  client,
		breaker: resilience.NewCircuitBreaker("firecrawl", 3, 60*time.Second),
	}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Supports returns true unless the circuit breaker is open.
func (f *FirecrawlAdapter) Supports(_ string) bool {
	return f.breaker.State() != resilience.CircuitOpen
}

// Scrape fetches a single URL via Firecrawl's scrape API.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	return resilience.ExecuteVal(ctx, f.breaker, func(ctx context.Context) (*Result, error) {
		resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
			URL:             targetURL,
			Formats:         []string{"markdown"},
			OnlyMainContent: true,
		})
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(resp.Data.Markdown) == "" {
			return nil, eris.New("firecrawl: empty markdown")
		}
		url := resp.Data.Metadata.SourceURL
		if url == "" {
			url = targetURL
		}
		return &Result{
			URL:      url,
			Title:    resp.Data.Metadata.Title,
			Markdown: resp.Data.Markdown,
			Source:   "firecrawl",
		}, nil
	})
}
