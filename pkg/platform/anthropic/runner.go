package anthropic

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/pkg/platform"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 1024
)

// Runner drives audit prompts through the Anthropic Messages API. Search
// prompts enable the server-side web search tool, and citations attached
// to the answer text are carried through as sources.
type Runner struct {
	client        Client
	model         string
	maxTokens     int64
	searchMaxUses int
}

// NewRunner creates the claude platform runner. Empty or zero arguments
// fall back to package defaults.
func NewRunner(client Client, chatModel string, maxTokens int64, searchMaxUses int) *Runner {
	if chatModel == "" {
		chatModel = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Runner{
		client:        client,
		model:         chatModel,
		maxTokens:     maxTokens,
		searchMaxUses: searchMaxUses,
	}
}

// Platform implements platform.Runner.
func (r *Runner) Platform() string {
	return model.PlatformClaude
}

// Run implements platform.Runner.
func (r *Runner) Run(ctx context.Context, prompt platform.Prompt) (*platform.Answer, error) {
	req := MessageRequest{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		Messages:  []Message{{Role: "user", Content: prompt.Text}},
	}
	if prompt.Search {
		req.WebSearch = true
		req.MaxSearchUses = r.searchMaxUses
	}

	resp, err := r.client.CreateMessage(ctx, req)
	if err != nil {
		return nil, err
	}

	text := collectText(resp.Content)
	if text == "" {
		return nil, eris.New("anthropic: response contains no text content")
	}

	return &platform.Answer{
		Text:         text,
		Citations:    collectCitations(resp.Content),
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// collectText joins the text blocks of a response. Web search responses
// split prose into multiple text blocks at citation boundaries, and the
// pieces concatenate back into continuous text.
func collectText(blocks []ContentBlock) string {
	var sb strings.Builder
	for _, b := range blocks {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// collectCitations flattens block citations into the stored wire form,
// deduplicated by URL.
func collectCitations(blocks []ContentBlock) []model.Citation {
	var out []model.Citation
	seen := make(map[string]bool)
	for _, b := range blocks {
		for _, c := range b.Citations {
			if c.URL == "" || seen[c.URL] {
				continue
			}
			seen[c.URL] = true
			out = append(out, model.Citation{
				URL:     c.URL,
				Title:   c.Title,
				Snippet: c.CitedText,
			})
		}
	}
	return out
}
