// Package notion wraps the Notion API for project lookups and approval updates.
package notion

import (
	"context"
	"errors"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/competitor-intel/internal/resilience"
)

// Client defines the Notion API operations the tracker needs.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	GetPage(ctx context.Context, pageID string) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// ClientOption configures the Notion client.
type ClientOption func(*notionClient)

// WithRateLimit overrides the default throttle of 3 req/s. Zero disables it.
func WithRateLimit(rps float64) ClientOption {
	return func(c *notionClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithRetryPolicy replaces the retry policy used for 429 and 5xx responses.
func WithRetryPolicy(p resilience.Policy) ClientOption {
	return func(c *notionClient) {
		c.policy = p
		if c.policy.ShouldRetry == nil {
			c.policy.ShouldRetry = retryable
		}
	}
}

type notionClient struct {
	inner   *notionapi.Client
	limiter *rate.Limiter
	policy  resilience.Policy
}

// NewClient creates a Notion client for an integration token.
func NewClient(token string, opts ...ClientOption) Client {
	p := resilience.DefaultPolicy()
	p.ShouldRetry = retryable
	p.OnRetry = resilience.RetryLogger("notion", "api")

	c := &notionClient{
		inner:   notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(3, 1),
		policy:  p,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryable treats Notion rate limiting and server errors as transient.
func retryable(err error) bool {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.Status)
	}
	return resilience.IsTransient(err)
}

func (c *notionClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// call runs fn under the rate limiter with retries. Each attempt waits for
// its own limiter slot.
func call[T any](ctx context.Context, c *notionClient, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	out, err := resilience.DoVal(ctx, c.policy, func(ctx context.Context) (T, error) {
		if err := c.wait(ctx); err != nil {
			var zero T
			return zero, eris.Wrap(err, "notion: rate limit")
		}
		return fn(ctx)
	})
	if err != nil {
		return out, eris.Wrap(err, "notion: "+op)
	}
	return out, nil
}

func (c *notionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return call(ctx, c, "query database "+dbID, func(ctx context.Context) (*notionapi.DatabaseQueryResponse, error) {
		return c.inner.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	})
}

func (c *notionClient) GetPage(ctx context.Context, pageID string) (*notionapi.Page, error) {
	return call(ctx, c, "get page "+pageID, func(ctx context.Context) (*notionapi.Page, error) {
		return c.inner.Page.Get(ctx, notionapi.PageID(pageID))
	})
}

func (c *notionClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	return call(ctx, c, "update page "+pageID, func(ctx context.Context) (*notionapi.Page, error) {
		return c.inner.Page.Update(ctx, notionapi.PageID(pageID), req)
	})
}
