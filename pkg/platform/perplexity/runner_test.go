package perplexity

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/pkg/platform"
)

// mockClient implements Client for runner tests.
type mockClient struct {
	resp    *ChatCompletionResponse
	err     error
	lastReq ChatCompletionRequest
}

func (m *mockClient) ChatCompletion(_ context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func TestRunner_Platform(t *testing.T) {
	r := NewRunner(&mockClient{}, "sonar-pro", 1024)
	assert.Equal(t, model.PlatformPerplexity, r.Platform())
}

func TestRunner_Run_NormalizesSearchResults(t *testing.T) {
	mc := &mockClient{
		resp: &ChatCompletionResponse{
			ID:      "cmpl-1",
			Choices: []Choice{{Message: Message{Role: "assistant", Content: "HaloSight builds presence analytics."}}},
			Citations: []string{
				"https://halosight.com",
			},
			SearchResults: []SearchResult{
				{Title: "HaloSight Home", URL: "https://halosight.com"},
				{Title: "Review", URL: "https://reviews.example.com/halosight"},
			},
			Usage: Usage{PromptTokens: 15, CompletionTokens: 40},
		},
	}
	r := NewRunner(mc, "sonar-pro", 1024)

	ans, err := r.Run(context.Background(), platform.Prompt{Text: "What is HaloSight?"})
	require.NoError(t, err)

	assert.Equal(t, "HaloSight builds presence analytics.", ans.Text)
	assert.Equal(t, "sonar-pro", ans.Model)
	assert.Equal(t, 15, ans.InputTokens)
	assert.Equal(t, 40, ans.OutputTokens)
	require.Len(t, ans.Citations, 2)
	assert.Equal(t, model.Citation{URL: "https://halosight.com", Title: "HaloSight Home"}, ans.Citations[0])

	require.Len(t, mc.lastReq.Messages, 1)
	assert.Equal(t, "user", mc.lastReq.Messages[0].Role)
	assert.Equal(t, "What is HaloSight?", mc.lastReq.Messages[0].Content)
	require.NotNil(t, mc.lastReq.MaxTokens)
	assert.Equal(t, 1024, *mc.lastReq.MaxTokens)
}

func TestRunner_Run_FallsBackToFlatCitations(t *testing.T) {
	mc := &mockClient{
		resp: &ChatCompletionResponse{
			Choices:   []Choice{{Message: Message{Content: "answer"}}},
			Citations: []string{"https://a.example.com", "https://b.example.com"},
		},
	}
	r := NewRunner(mc, "sonar", 0)

	ans, err := r.Run(context.Background(), platform.Prompt{Text: "q"})
	require.NoError(t, err)
	require.Len(t, ans.Citations, 2)
	assert.Equal(t, model.Citation{URL: "https://a.example.com"}, ans.Citations[0])
	assert.Empty(t, ans.Citations[0].Title)
	assert.Nil(t, mc.lastReq.MaxTokens)
}

func TestRunner_Run_NoCitations(t *testing.T) {
	mc := &mockClient{
		resp: &ChatCompletionResponse{
			Choices: []Choice{{Message: Message{Content: "plain answer"}}},
		},
	}
	r := NewRunner(mc, "sonar-pro", 512)

	ans, err := r.Run(context.Background(), platform.Prompt{Text: "q"})
	require.NoError(t, err)
	assert.Nil(t, ans.Citations)
}

func TestRunner_Run_EmptyChoices(t *testing.T) {
	mc := &mockClient{resp: &ChatCompletionResponse{ID: "empty"}}
	r := NewRunner(mc, "sonar-pro", 512)

	_, err := r.Run(context.Background(), platform.Prompt{Text: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestRunner_Run_ClientError(t *testing.T) {
	mc := &mockClient{err: eris.New("perplexity: unexpected status 500")}
	r := NewRunner(mc, "sonar-pro", 512)

	_, err := r.Run(context.Background(), platform.Prompt{Text: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestNewRunner_DefaultModel(t *testing.T) {
	mc := &mockClient{resp: &ChatCompletionResponse{Choices: []Choice{{Message: Message{Content: "ok"}}}}}
	r := NewRunner(mc, "", 0)

	_, err := r.Run(context.Background(), platform.Prompt{Text: "q"})
	require.NoError(t, err)
	assert.Equal(t, defaultModel, mc.lastReq.Model)
}
