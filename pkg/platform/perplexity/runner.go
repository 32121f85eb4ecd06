package perplexity

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/pkg/platform"
)

// Runner adapts the Perplexity client to the platform.Runner interface.
// Perplexity performs retrieval on every request, so the search variant
// behaves identically to the base platform.
type Runner struct {
	client    Client
	model     string
	maxTokens int
}

// NewRunner creates a perplexity runner using the given chat model.
func NewRunner(client Client, chatModel string, maxTokens int) *Runner {
	if chatModel == "" {
		chatModel = defaultModel
	}
	return &Runner{client: client, model: chatModel, maxTokens: maxTokens}
}

// Platform returns the base platform identifier.
func (r *Runner) Platform() string {
	return model.PlatformPerplexity
}

// Run executes the prompt and normalizes the response.
func (r *Runner) Run(ctx context.Context, prompt platform.Prompt) (*platform.Answer, error) {
	req := ChatCompletionRequest{
		Model:    r.model,
		Messages: []Message{{Role: "user", Content: prompt.Text}},
	}
	if r.maxTokens > 0 {
		maxTokens := r.maxTokens
		req.MaxTokens = &maxTokens
	}

	resp, err := r.client.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("perplexity: response contains no choices")
	}

	return &platform.Answer{
		Text:         resp.Choices[0].Message.Content,
		Citations:    normalizeCitations(resp),
		Model:        r.model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// normalizeCitations prefers the structured search results and falls back
// to the flat citation URL list older API versions return.
func normalizeCitations(resp *ChatCompletionResponse) []model.Citation {
	if len(resp.SearchResults) > 0 {
		out := make([]model.Citation, 0, len(resp.SearchResults))
		for _, sr := range resp.SearchResults {
			out = append(out, model.Citation{URL: sr.URL, Title: sr.Title})
		}
		return out
	}
	if len(resp.Citations) == 0 {
		return nil
	}
	out := make([]model.Citation, 0, len(resp.Citations))
	for _, u := range resp.Citations {
		out = append(out, model.Citation{URL: u})
	}
	return out
}
