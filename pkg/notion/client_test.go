package notion

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/halosight/presence-cli/internal/resilience"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *MockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *MockClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func TestMockClientSatisfiesInterface(t *testing.T) {
	t.Parallel()
	var _ Client = (*MockClient)(nil)
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	c := NewClient("test-token").(*notionClient)

	require.NotNil(t, c.limiter)
	assert.Equal(t, rate.Limit(3), c.limiter.Limit())
	// DefaultRetryConfig.
	assert.Equal(t, 3, c.retry.MaxAttempts)
}

func TestWithRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("overrides limiter", func(t *testing.T) {
		t.Parallel()
		c := NewClient("tok", WithRateLimit(10)).(*notionClient)
		require.NotNil(t, c.limiter)
		assert.Equal(t, rate.Limit(10), c.limiter.Limit())
		assert.Equal(t, 10, c.limiter.Burst())
	})

	t.Run("zero disables throttling", func(t *testing.T) {
		t.Parallel()
		c := NewClient("tok", WithRateLimit(0)).(*notionClient)
		assert.Nil(t, c.limiter)
	})

	t.Run("fractional rate gets burst of 1", func(t *testing.T) {
		t.Parallel()
		c := NewClient("tok", WithRateLimit(0.5)).(*notionClient)
		require.NotNil(t, c.limiter)
		assert.Equal(t, 1, c.limiter.Burst())
	})
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	c := NewClient("tok", WithRetry(resilience.RetryConfig{MaxAttempts: 5})).(*notionClient)
	assert.Equal(t, 5, c.retry.MaxAttempts)
}

func TestWait_CancelledContext(t *testing.T) {
	t.Parallel()

	// Zero burst means Wait always blocks, so only the context can end it.
	c := &notionClient{limiter: rate.NewLimiter(rate.Every(time.Hour), 0)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, c.wait(ctx))
}

func TestShouldRetryNotion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "rate limited", err: &notionapi.Error{Status: 429}, want: true},
		{name: "server error", err: &notionapi.Error{Status: 503}, want: true},
		{name: "wrapped server error", err: eris.Wrap(&notionapi.Error{Status: 500}, "sync"), want: true},
		{name: "validation error", err: &notionapi.Error{Status: 400}, want: false},
		{name: "missing database", err: &notionapi.Error{Status: 404}, want: false},
		{name: "plain error", err: eris.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, shouldRetryNotion(tt.err))
		})
	}
}
