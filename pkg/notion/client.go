// Package notion mirrors audit results into a Notion database, one page
// per audit. API access is throttled to Notion's documented rate limit
// and retried through the shared resilience policy.
package notion

import (
	"context"
	"errors"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/halosight/presence-cli/internal/resilience"
)

// Client is the subset of the Notion API the exporter uses.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// ClientOption configures the Notion client.
type ClientOption func(*notionClient)

// WithRateLimit overrides the default limit of 3 req/s. Zero or a
// negative rate disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *notionClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithRetry overrides the default retry policy.
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(c *notionClient) {
		c.retry = cfg
	}
}

// notionClient implements Client over a *notionapi.Client.
type notionClient struct {
	inner   *notionapi.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a Notion client for the given integration token.
// Calls are throttled to 3 req/s and retried on rate-limit and server
// errors.
func NewClient(token string, opts ...ClientOption) Client {
	c := &notionClient{
		inner:   notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(3, 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is
// cancelled. The limiter gates every retry attempt, not just the first.
func (c *notionClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// opCfg stamps the per-operation retry logger and the Notion error
// classifier onto the configured policy.
func (c *notionClient) opCfg(op string) resilience.RetryConfig {
	cfg := c.retry
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = shouldRetryNotion
	}
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("notion", op)
	}
	return cfg
}

// shouldRetryNotion retries rate-limit and server-side failures. The
// API surfaces HTTP failures as *notionapi.Error with the status
// attached.
func shouldRetryNotion(err error) bool {
	var ne *notionapi.Error
	if errors.As(err, &ne) {
		return resilience.IsTransientHTTPStatus(ne.Status)
	}
	return resilience.IsTransient(err)
}

func (c *notionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := resilience.DoVal(ctx, c.opCfg("query database"), func(ctx context.Context) (*notionapi.DatabaseQueryResponse, error) {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		return c.inner.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query database %s", dbID)
	}
	return resp, nil
}

func (c *notionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	page, err := resilience.DoVal(ctx, c.opCfg("create page"), func(ctx context.Context) (*notionapi.Page, error) {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		return c.inner.Page.Create(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrap(err, "notion: create page")
	}
	return page, nil
}

func (c *notionClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	page, err := resilience.DoVal(ctx, c.opCfg("update page"), func(ctx context.Context) (*notionapi.Page, error) {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		return c.inner.Page.Update(ctx, notionapi.PageID(pageID), req)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: update page %s", pageID)
	}
	return page, nil
}
