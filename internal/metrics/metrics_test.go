package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAccumulate(t *testing.T) {
	QueryTotal.WithLabelValues("chatgpt", "completed").Inc()
	QueryTotal.WithLabelValues("chatgpt", "completed").Inc()
	QueryTotal.WithLabelValues("chatgpt", "failed").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(QueryTotal.WithLabelValues("chatgpt", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(QueryTotal.WithLabelValues("chatgpt", "failed")))
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	Init()
	TokensUsed.WithLabelValues("claude", "input").Add(123)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "presence_tokens_total")
}
