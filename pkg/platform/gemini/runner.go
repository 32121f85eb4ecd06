package gemini

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/pkg/platform"
)

// Runner drives audit prompts through the Gemini generateContent API.
// Search prompts enable the google_search grounding tool; grounding
// chunks are carried through as citations.
type Runner struct {
	client    Client
	model     string
	maxTokens int
}

// NewRunner creates the gemini platform runner. An empty chatModel falls
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
	return model.PlatformGemini
}

// Run implements platform.Runner.
func (r *Runner) Run(ctx context.Context, prompt platform.Prompt) (*platform.Answer, error) {
	req := GenerateRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: prompt.Text}}},
		},
	}
	if r.maxTokens > 0 {
		req.GenerationConfig = &GenerationConfig{MaxOutputTokens: r.maxTokens}
	}
	if prompt.Search {
		req.Tools = []Tool{{GoogleSearch: &GoogleSearch{}}}
	}

	resp, err := r.client.GenerateContent(ctx, r.model, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, eris.New("gemini: response contains no candidates")
	}

	cand := resp.Candidates[0]
	text := collectText(cand.Content.Parts)
	if text == "" {
		return nil, eris.New("gemini: response contains no text parts")
	}

	answer := &platform.Answer{
		Text:      text,
		Citations: groundingCitations(cand.GroundingMetadata),
		Model:     r.model,
	}
	if resp.ModelVersion != "" {
		answer.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		answer.InputTokens = resp.UsageMetadata.PromptTokenCount
		answer.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
	}
	return answer, nil
}

func collectText(parts []Part) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// groundingCitations maps grounding chunks into the stored wire form,
// deduplicated by URI. Gemini reports redirect URIs rather than the
// final page URLs.
func groundingCitations(md *GroundingMetadata) []model.Citation {
	if md == nil {
		return nil
	}
	var out []model.Citation
	seen := make(map[string]bool)
	for _, chunk := range md.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		out = append(out, model.Citation{
			URL:   chunk.Web.URI,
			Title: chunk.Web.Title,
		})
	}
	return out
}
