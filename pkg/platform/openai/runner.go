package openai

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/pkg/platform"
)

const (
	defaultModel       = "gpt-4o"
	defaultSearchModel = "gpt-4o-search-preview"
	defaultMaxTokens   = 1024
)

// Runner drives audit prompts through the OpenAI chat completions API.
// Search prompts swap to the search-preview model, whose answers carry
// URL citation annotations.
type Runner struct {
	client      Client
	model       string
	searchModel string
	maxTokens   int64
}

// NewRunner creates the chatgpt platform runner. Empty or zero arguments
// fall back to package defaults.
func NewRunner(client Client, chatModel, searchModel string, maxTokens int64) *Runner {
	if chatModel == "" {
		chatModel = defaultModel
	}
	if searchModel == "" {
		searchModel = defaultSearchModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Runner{
		client:      client,
		model:       chatModel,
		searchModel: searchModel,
		maxTokens:   maxTokens,
	}
}

// Platform implements platform.Runner.
func (r *Runner) Platform() string {
	return model.PlatformChatGPT
}

// Run implements platform.Runner.
func (r *Runner) Run(ctx context.Context, prompt platform.Prompt) (*platform.Answer, error) {
	req := ChatRequest{
		Model:     r.model,
		Messages:  []Message{{Role: "user", Content: prompt.Text}},
		MaxTokens: r.maxTokens,
	}
	if prompt.Search {
		req.Model = r.searchModel
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Text == "" {
		return nil, eris.New("openai: response contains no message content")
	}

	return &platform.Answer{
		Text:         resp.Text,
		Citations:    normalizeAnnotations(resp.Annotations),
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

// normalizeAnnotations maps URL citations into the stored wire form,
// deduplicated by URL. The same source often annotates several spans of
// one answer.
func normalizeAnnotations(annotations []Annotation) []model.Citation {
	var out []model.Citation
	seen := make(map[string]bool)
	for _, a := range annotations {
		if a.URL == "" || seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		out = append(out, model.Citation{
			URL:   a.URL,
			Title: a.Title,
		})
	}
	return out
}
