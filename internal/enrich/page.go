package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/competitor-intel/internal/model"
	"github.com/sells-group/competitor-intel/internal/scrape"
)

const defaultScrapeTimeout = 45 * time.Second

// Renderer turns a URL into markdown. *scrape.Chain satisfies it.
type Renderer interface {
	Scrape(ctx context.Context, url string) (*scrape.Result, error)
}

// PageOption configures a PageScraper.
type PageOption func(*PageScraper)

// WithScrapeConcurrency bounds concurrent page scrapes.
func WithScrapeConcurrency(n int) PageOption {
	return func(p *PageScraper) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithScrapeTimeout bounds each page scrape across all providers.
func WithScrapeTimeout(d time.Duration) PageOption {
	return func(p *PageScraper) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// PageScraper produces a PageSummary for competitor URLs.
type PageScraper struct {
	renderer    Renderer
	concurrency int
	timeout     time.Duration
}

// NewPageScraper creates a PageScraper.
func NewPageScraper(r Renderer, opts ...PageOption) *PageScraper {
	p := &PageScraper{
		renderer:    r,
		concurrency: defaultConcurrency,
		timeout:     defaultScrapeTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Scrape never fails: a page that cannot be rendered comes back with Err set.
func (p *PageScraper) Scrape(ctx context.Context, url string) model.PageSummary {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.renderer.Scrape(ctx, url)
	if err != nil {
		serr := &model.ScrapeError{URL: url, Err: err}
		zap.L().Warn("enrich: page scrape failed", zap.String("url", url), zap.Error(serr))
		return model.PageSummary{URL: url, Err: serr.Error()}
	}
	return model.PageSummary{
		URL:     url,
		Source:  res.Source,
		Title:   res.Title,
		Content: res.Markdown,
	}
}

// ScrapeAll scrapes every URL concurrently, returning summaries in input order.
func (p *PageScraper) ScrapeAll(ctx context.Context, urls []string) []model.PageSummary {
	out := make([]model.PageSummary, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			out[i] = p.Scrape(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	return out
}
