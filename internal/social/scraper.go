package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/competitor-intel/internal/model"
	"github.com/sells-group/competitor-intel/pkg/apify"
)

const (
	defaultMaxItems      = 5
	defaultScrapeTimeout = 5 * time.Minute
)

// ScraperOption configures a Scraper.
type ScraperOption func(*Scraper)

// WithActors replaces the actor table. The table is copied.
func WithActors(t ActorTable) ScraperOption {
	return func(s *Scraper) {
		s.actors = make(ActorTable, len(t))
		for p, a := range t {
			s.actors[p] = a
		}
	}
}

// WithMaxItems caps the records kept per profile.
func WithMaxItems(n int) ScraperOption {
	return func(s *Scraper) {
		if n > 0 {
			s.maxItems = n
		}
	}
}

// WithScrapeTimeout bounds each actor run including polling.
func WithScrapeTimeout(d time.Duration) ScraperOption {
	return func(s *Scraper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSkipMissingHandle fails handle-based platforms locally when no handle
// can be extracted instead of calling the actor with a null handle.
func WithSkipMissingHandle(skip bool) ScraperOption {
	return func(s *Scraper) {
		s.skipMissingHandle = skip
	}
}

// WithPollOptions passes polling options through to apify.WaitForRun.
func WithPollOptions(opts ...apify.PollOption) ScraperOption {
	return func(s *Scraper) {
		s.pollOpts = append(s.pollOpts, opts...)
	}
}

// Scraper runs Apify actors against social profile URLs.
type Scraper struct {
	client            apify.Client
	actors            ActorTable
	maxItems          int
	timeout           time.Duration
	skipMissingHandle bool
	pollOpts          []apify.PollOption
}

// NewScraper creates a Scraper using DefaultActorTable unless overridden.
func NewScraper(client apify.Client, opts ...ScraperOption) *Scraper {
	s := &Scraper{
		client:   client,
		actors:   DefaultActorTable(),
		maxItems: defaultMaxItems,
		timeout:  defaultScrapeTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scrape runs the platform's actor for url. It never fails; problems are
// reported through the outcome's Failure.
func (s *Scraper) Scrape(ctx context.Context, platform model.Platform, url string) model.SocialOutcome {
	out := model.SocialOutcome{Platform: platform, URL: url}
	log := zap.L().With(zap.String("platform", string(platform)), zap.String("url", url))

	actor, ok := s.actors[platform]
	if !ok {
		out.Failure = &model.SocialFailure{
			Kind:    model.FailureNoScraper,
			Message: fmt.Sprintf("no scraper available for %s", platform),
		}
		log.Info("social: no scraper for platform")
		return out
	}

	input, hasHandle := BuildInput(platform, url, s.maxItems)
	if !hasHandle && needsHandle(platform) {
		if s.skipMissingHandle {
			out.Failure = &model.SocialFailure{
				Kind:    model.FailureNoHandle,
				Message: fmt.Sprintf("no handle in %s", url),
			}
			return out
		}
		log.Debug("social: no handle in url, calling actor with null handle")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	items, err := apify.RunActor(ctx, s.client, actor, input, s.maxItems, s.pollOpts...)
	if err != nil {
		var runErr *apify.RunFailedError
		if errors.As(err, &runErr) {
			out.Failure = &model.SocialFailure{
				Kind:    model.FailureRunFailed,
				Message: fmt.Sprintf("failed to scrape %s", url),
			}
			log.Warn("social: actor run did not succeed", zap.String("status", runErr.Status))
			return out
		}
		serr := &model.SocialScrapeError{Platform: platform, URL: url, Err: err}
		out.Failure = &model.SocialFailure{
			Kind:    model.FailureTransport,
			Message: fmt.Sprintf("error scraping %s: %v", url, err),
		}
		log.Warn("social: actor run errored", zap.Error(serr))
		return out
	}

	if len(items) > s.maxItems {
		items = items[:s.maxItems]
	}
	out.Posts = make([]model.SocialPost, 0, len(items))
	for _, raw := range items {
		var post model.SocialPost
		if err := json.Unmarshal(raw, &post); err != nil || post == nil {
			continue
		}
		out.Posts = append(out.Posts, post)
	}
	log.Debug("social: actor run complete",
		zap.Int("items", len(out.Posts)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out
}

// ScrapeLinks scrapes a competitor's links one at a time: known platforms in
// canonical order, then any others by name.
func (s *Scraper) ScrapeLinks(ctx context.Context, links model.SocialLinks) map[model.Platform]model.SocialOutcome {
	order := links.Sorted()
	var extra []model.Platform
	for p := range links {
		if !slices.Contains(model.Platforms, p) {
			extra = append(extra, p)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	order = append(order, extra...)

	out := make(map[model.Platform]model.SocialOutcome, len(order))
	for _, p := range order {
		out[p] = s.Scrape(ctx, p, links[p])
	}
	return out
}
