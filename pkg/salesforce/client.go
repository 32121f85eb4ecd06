// Package salesforce writes audit scores back to CRM account records
// over the JWT-authenticated REST API. Calls are throttled and retried
// through the shared resilience policy.
package salesforce

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/halosight/presence-cli/internal/resilience"
)

// maxBatchSize is the Salesforce Collections API limit per request.
const maxBatchSize = 200

// Client is the subset of the Salesforce API the score writeback uses.
type Client interface {
	Query(ctx context.Context, soql string, out any) error
	UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error
	UpdateCollection(ctx context.Context, sObjectName string, records []CollectionRecord) ([]CollectionResult, error)
	DescribeSObject(ctx context.Context, name string) (*SObjectDescription, error)
}

// CollectionRecord is one record in a collection update: the Salesforce
// record ID plus the field values to set.
type CollectionRecord struct {
	ID     string         `json:"Id"`
	Fields map[string]any `json:"fields"`
}

// CollectionResult is the per-record outcome of a collection operation.
type CollectionResult struct {
	ID      string   `json:"id"`
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

// SObjectField describes a single field on a Salesforce SObject.
type SObjectField struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Type       string `json:"type"`
	Updateable bool   `json:"updateable"`
}

// SObjectDescription holds metadata about a Salesforce SObject.
type SObjectDescription struct {
	Name   string         `json:"name"`
	Label  string         `json:"label"`
	Fields []SObjectField `json:"fields"`
}

// ClientOption configures the Salesforce client.
type ClientOption func(*sfClient)

// WithRateLimit sets a per-second limit for API calls. A burst equal to
// the integer portion of rps is allowed.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithRetry overrides the default retry policy.
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(c *sfClient) {
		c.retry = cfg
	}
}

// sfClient wraps the go-salesforce/v3 Salesforce struct.
//
// NOTE: go-salesforce does not accept context.Context, so the API call
// itself cannot be cancelled. The ctx still governs the rate-limiter
// wait and the retry backoff sleeps.
type sfClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient wraps an authenticated go-salesforce instance.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &sfClient{
		sf:    sf,
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is
// cancelled. The limiter gates every retry attempt, not just the first.
func (c *sfClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// opCfg stamps the per-operation retry logger and the Salesforce error
// classifier onto the configured policy.
func (c *sfClient) opCfg(op string) resilience.RetryConfig {
	cfg := c.retry
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = shouldRetrySalesforce
	}
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("salesforce", op)
	}
	return cfg
}

// Salesforce reports retryable contention and limit conditions by error
// code in the message body.
var sfTransientCodes = []string{
	"UNABLE_TO_LOCK_ROW",
	"REQUEST_LIMIT_EXCEEDED",
	"SERVER_UNAVAILABLE",
}

func shouldRetrySalesforce(err error) bool {
	if resilience.IsTransient(err) {
		return true
	}
	msg := strings.ToUpper(err.Error())
	for _, code := range sfTransientCodes {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

func (c *sfClient) Query(ctx context.Context, soql string, out any) error {
	err := resilience.Do(ctx, c.opCfg("query"), func(ctx context.Context) error {
		if err := c.wait(ctx); err != nil {
			return err
		}
		return c.sf.Query(soql, out)
	})
	if err != nil {
		return eris.Wrap(err, "sf: query")
	}
	return nil
}

func (c *sfClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	// Copy before stamping the Id so the caller's map stays clean.
	record := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		record[k] = v
	}
	record["Id"] = id

	err := resilience.Do(ctx, c.opCfg("update one"), func(ctx context.Context) error {
		if err := c.wait(ctx); err != nil {
			return err
		}
		return c.sf.UpdateOne(sObjectName, record)
	})
	if err != nil {
		return eris.Wrapf(err, "sf: update %s %s", sObjectName, id)
	}
	return nil
}

func (c *sfClient) UpdateCollection(ctx context.Context, sObjectName string, records []CollectionRecord) ([]CollectionResult, error) {
	maps := make([]map[string]any, len(records))
	for i, rec := range records {
		m := make(map[string]any, len(rec.Fields)+1)
		for k, v := range rec.Fields {
			m[k] = v
		}
		m["Id"] = rec.ID
		maps[i] = m
	}

	results, err := resilience.DoVal(ctx, c.opCfg("update collection"), func(ctx context.Context) ([]CollectionResult, error) {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		sfResults, err := c.sf.UpdateCollection(sObjectName, maps, maxBatchSize)
		if err != nil {
			return nil, err
		}

		out := make([]CollectionResult, len(sfResults.Results))
		for i, r := range sfResults.Results {
			var errs []string
			for _, e := range r.Errors {
				errs = append(errs, e.Message)
			}
			out[i] = CollectionResult{ID: r.Id, Success: r.Success, Errors: errs}
		}
		return out, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "sf: update collection %s", sObjectName)
	}
	return results, nil
}

func (c *sfClient) DescribeSObject(ctx context.Context, name string) (*SObjectDescription, error) {
	desc, err := resilience.DoVal(ctx, c.opCfg("describe"), func(ctx context.Context) (*SObjectDescription, error) {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		resp, err := c.sf.DoRequest(http.MethodGet, "/sobjects/"+name+"/describe", nil)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close() //nolint:errcheck

		var d SObjectDescription
		if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
			return nil, eris.Wrap(err, "decode describe response")
		}
		return &d, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "sf: describe %s", name)
	}
	return desc, nil
}
