// Package enrich gathers per-competitor web context: search snippets about
// each competitor URL and a markdown rendering of the page itself.
package enrich

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/competitor-intel/internal/model"
	"github.com/sells-group/competitor-intel/pkg/jina"
	"github.com/sells-group/competitor-intel/pkg/tavily"
)

const (
	defaultConcurrency   = 5
	defaultSearchTimeout = 30 * time.Second
	defaultDepth         = "advanced"
)

// SearchProvider runs one search and returns its raw result payload.
type SearchProvider interface {
	Search(ctx context.Context, query, depth string) (json.RawMessage, error)
}

// TavilyProvider searches through Tavily. The client retries transient
// failures itself.
type TavilyProvider struct {
	client tavily.Client
}

// NewTavilyProvider wraps a Tavily client.
func NewTavilyProvider(c tavily.Client) *TavilyProvider {
	return &TavilyProvider{client: c}
}

// Search implements SearchProvider.
func (t *TavilyProvider) Search(ctx context.Context, query, depth string) (json.RawMessage, error) {
	resp, err := t.client.Search(ctx, tavily.SearchRequest{Query: query, SearchDepth: depth})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// JinaProvider searches through Jina Search. Depth has no equivalent there
// and is ignored.
type JinaProvider struct {
	client jina.Client
}

// NewJinaProvider wraps a Jina client.
func NewJinaProvider(c jina.Client) *JinaProvider {
	return &JinaProvider{client: c}
}

// Search implements SearchProvider. Hits are re-encoded as {url, content}
// records, preferring the description when the content is empty.
func (j *JinaProvider) Search(ctx context.Context, query, _ string) (json.RawMessage, error) {
	resp, err := j.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchSnippet, 0, len(resp.Data))
	for _, r := range resp.Data {
		content := r.Content
		if content == "" {
			content = r.Description
		}
		out = append(out, model.SearchSnippet{URL: r.URL, Content: content})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: encode jina results")
	}
	return b, nil
}

// SearchOption configures a Searcher.
type SearchOption func(*Searcher)

// WithSearchConcurrency bounds concurrent searches.
func WithSearchConcurrency(n int) SearchOption {
	return func(s *Searcher) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSearchTimeout bounds each search call.
func WithSearchTimeout(d time.Duration) SearchOption {
	return func(s *Searcher) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSearchDepth sets the depth passed to the provider.
func WithSearchDepth(depth string) SearchOption {
	return func(s *Searcher) {
		if depth != "" {
			s.depth = depth
		}
	}
}

// Searcher fans out searches for competitor URLs.
type Searcher struct {
	provider    SearchProvider
	concurrency int
	timeout     time.Duration
	depth       string
}

// NewSearcher creates a Searcher.
func NewSearcher(provider SearchProvider, opts ...SearchOption) *Searcher {
	s := &Searcher{
		provider:    provider,
		concurrency: defaultConcurrency,
		timeout:     defaultSearchTimeout,
		depth:       defaultDepth,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search returns the snippets for one URL. Failures come back as
// *model.EnrichmentError.
func (s *Searcher) Search(ctx context.Context, url string) ([]model.SearchSnippet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.provider.Search(ctx, url, s.depth)
	if err != nil {
		return nil, &model.EnrichmentError{URL: url, Err: err}
	}
	return ParseResults(raw), nil
}

// SearchAll searches every URL concurrently. The result has one entry per
// input URL, in input order; a failed URL gets an empty slice.
func (s *Searcher) SearchAll(ctx context.Context, urls []string) [][]model.SearchSnippet {
	results := make([][]model.SearchSnippet, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, u := range urls {
		g.Go(func() error {
			snippets, err := s.Search(gctx, u)
			if err != nil {
				zap.L().Warn("enrich: search failed, continuing without snippets",
					zap.String("url", u),
					zap.Error(err),
				)
				snippets = []model.SearchSnippet{}
			}
			results[i] = snippets
			return nil
		})
	}
	_ = g.Wait()

	return results
}
