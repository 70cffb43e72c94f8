package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-intel/internal/fetcher"
)

// minLocalContent is the shortest markdown accepted from a direct fetch.
const minLocalContent = 100

// LocalScraper fetches HTML directly, rejects anti-bot pages, and converts
// the main content to markdown. It makes no paid API calls.
type LocalScraper struct {
	fetcher fetcher.Fetcher
}

// NewLocalScraper creates a LocalScraper on top of the given fetcher.
func NewLocalScraper(f fetcher.Fetcher) *LocalScraper {
	return &LocalScraper{fetcher: f}
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL, detects blocks, and converts the HTML to markdown.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	page, err := l.fetcher.FetchPage(ctx, targetURL)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}

	if blocked, blockType := DetectBlock(page.Body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", blockType)
	}

	title, markdown, err := HTMLToMarkdown(string(page.Body))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: convert")
	}
	if len(strings.TrimSpace(markdown)) < minLocalContent {
		return nil, eris.New("local_http: empty page")
	}

	return &Result{
		URL:      page.URL,
		Title:    title,
		Markdown: markdown,
		Source:   "local_http",
	}, nil
}
