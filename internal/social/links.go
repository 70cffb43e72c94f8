// Package social finds competitors' social profiles, scrapes them through
// Apify actors, and condenses the results into a SocialAnalysis.
package social

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/competitor-intel/internal/fetcher"
	"github.com/sells-group/competitor-intel/internal/model"
)

const (
	defaultLinkTimeout     = 10 * time.Second
	defaultLinkConcurrency = 4
)

// PageFetcher fetches one page. *fetcher.HTTPFetcher satisfies it.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (*fetcher.Page, error)
}

// DomainRule maps a domain to a platform.
type DomainRule struct {
	Domain   string
	Platform model.Platform
}

// DomainTable is an ordered rule list; the first rule matching a link wins.
type DomainTable []DomainRule

// DefaultDomainTable returns the built-in rules.
func DefaultDomainTable() DomainTable {
	return DomainTable{
		{Domain: "facebook.com", Platform: model.PlatformFacebook},
		{Domain: "twitter.com", Platform: model.PlatformX},
		{Domain: "x.com", Platform: model.PlatformX},
		{Domain: "instagram.com", Platform: model.PlatformInstagram},
		{Domain: "linkedin.com", Platform: model.PlatformLinkedIn},
		{Domain: "youtube.com", Platform: model.PlatformYouTube},
	}
}

// Match returns the platform for a lowercased href. When the href has a
// host, the host must equal the domain or be a subdomain of it; otherwise
// a substring match is used.
func (t DomainTable) Match(href string) (model.Platform, bool) {
	host := ""
	if u, err := url.Parse(href); err == nil {
		host = strings.TrimSuffix(u.Hostname(), ".")
	}
	for _, r := range t {
		if host != "" {
			if host == r.Domain || strings.HasSuffix(host, "."+r.Domain) {
				return r.Platform, true
			}
			continue
		}
		if strings.Contains(href, r.Domain) {
			return r.Platform, true
		}
	}
	return "", false
}

// LinkOption configures a LinkExtractor.
type LinkOption func(*LinkExtractor)

// WithLinkTimeout bounds each page fetch.
func WithLinkTimeout(d time.Duration) LinkOption {
	return func(e *LinkExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLinkConcurrency bounds concurrent page fetches in ExtractForCompetitor.
func WithLinkConcurrency(n int) LinkOption {
	return func(e *LinkExtractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// LinkExtractor pulls social profile links out of web pages.
type LinkExtractor struct {
	fetcher     PageFetcher
	table       DomainTable
	timeout     time.Duration
	concurrency int
}

// NewLinkExtractor creates a LinkExtractor. A nil table selects
// DefaultDomainTable. The table is copied.
func NewLinkExtractor(f PageFetcher, table DomainTable, opts ...LinkOption) *LinkExtractor {
	if table == nil {
		table = DefaultDomainTable()
	}
	e := &LinkExtractor{
		fetcher:     f,
		table:       append(DomainTable(nil), table...),
		timeout:     defaultLinkTimeout,
		concurrency: defaultLinkConcurrency,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract fetches pageURL and returns its social links. Fetch and parse
// errors are logged and yield an empty set.
func (e *LinkExtractor) Extract(ctx context.Context, pageURL string) model.SocialLinks {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	page, err := e.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		zap.L().Warn("social: fetch page for links failed", zap.String("url", pageURL), zap.Error(err))
		return model.SocialLinks{}
	}
	links, err := e.parse(string(page.Body))
	if err != nil {
		zap.L().Warn("social: parse page for links failed", zap.String("url", pageURL), zap.Error(err))
		return model.SocialLinks{}
	}
	return links
}

// ExtractHTML returns the social links in an HTML document.
func (e *LinkExtractor) ExtractHTML(html string) model.SocialLinks {
	links, err := e.parse(html)
	if err != nil {
		return model.SocialLinks{}
	}
	return links
}

func (e *LinkExtractor) parse(html string) (model.SocialLinks, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	links := model.SocialLinks{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.ToLower(strings.TrimSpace(href))
		if href == "" {
			return
		}
		p, ok := e.table.Match(href)
		if !ok {
			return
		}
		if _, seen := links[p]; !seen {
			links[p] = href
		}
	})
	return links, nil
}

// ExtractForCompetitor merges the links found on every snippet source page.
// Pages are fetched concurrently but merged in snippet order, so a later
// page's link replaces an earlier one for the same platform.
func (e *LinkExtractor) ExtractForCompetitor(ctx context.Context, snippets []model.SearchSnippet) model.SocialLinks {
	perPage := make([]model.SocialLinks, len(snippets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, s := range snippets {
		if s.URL == "" {
			continue
		}
		g.Go(func() error {
			perPage[i] = e.Extract(gctx, s.URL)
			return nil
		})
	}
	_ = g.Wait()

	merged := model.SocialLinks{}
	for _, links := range perPage {
		for p, u := range links {
			merged[p] = u
		}
	}
	return merged
}
