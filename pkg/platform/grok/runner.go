package grok

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/pkg/platform"
)

// Runner drives audit prompts through the xAI chat completions API.
// Live Search mode is pinned per prompt: "on" for search prompts and
// "off" otherwise, so base-platform prompts measure parametric
// knowledge instead of the server-default "auto" behavior.
type Runner struct {
	client    Client
	model     string
	maxTokens int
}

// NewRunner creates the grok platform runner. An empty chatModel falls
// back to the client default.
func NewRunner(client Client, chatModel string, maxTokens int) *Runner {
	if chatModel == "" {
		chatModel = defaultModel
	}
	return &Runner{
		client:    client,
		model:     chatModel,
		maxTokens: maxTokens,
	}
}

// Platform implements platform.Runner.
func (r *Runner) Platform() string {
	return model.PlatformGrok
}

// Run implements platform.Runner.
func (r *Runner) Run(ctx context.Context, prompt platform.Prompt) (*platform.Answer, error) {
	req := ChatCompletionRequest{
		Model:    r.model,
		Messages: []Message{{Role: "user", Content: prompt.Text}},
	}
	if r.maxTokens > 0 {
		maxTokens := r.maxTokens
		req.MaxTokens = &maxTokens
	}
	if prompt.Search {
		req.SearchParameters = &SearchParameters{Mode: "on", ReturnCitations: true}
	} else {
		req.SearchParameters = &SearchParameters{Mode: "off"}
	}

	resp, err := r.client.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("grok: response contains no choices")
	}

	return &platform.Answer{
		Text:         resp.Choices[0].Message.Content,
		Citations:    normalizeCitations(resp.Citations),
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// normalizeCitations maps the flat URL list into the stored wire form,
// deduplicated by URL.
func normalizeCitations(urls []string) []model.Citation {
	var out []model.Citation
	seen := make(map[string]bool)
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, model.Citation{URL: u})
	}
	return out
}
