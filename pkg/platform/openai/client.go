// Package openai wraps the official OpenAI SDK behind a narrow client
// interface covering the chat operations audits need. Web search runs
// through the search-preview chat models, which annotate answers with
// URL citations.
package openai

import (
	"context"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rotisserie/eris"
)

// Client defines the OpenAI API operations used by audit runs.
type Client interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is our own request type for CreateChatCompletion.
type ChatRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int64
	Temperature *float64
}

// Message represents a single conversational message.
type Message struct {
	Role    string // "system" or "user"
	Content string
}

// ChatResponse is our own response type from CreateChatCompletion. Only
// the first choice is surfaced.
type ChatResponse struct {
	ID          string
	Model       string
	Text        string
	Annotations []Annotation
	Usage       TokenUsage
}

// Annotation is a URL citation attached to the answer text by the
// search-preview models.
type Annotation struct {
	URL   string
	Title string
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// sdkClient implements Client using the official openai-go SDK.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates a new OpenAI client backed by the SDK.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
	}
}

func (c *sdkClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(req.Model),
		Messages: toSDKMessages(req.Messages),
	}

	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(req.MaxTokens)
	}

	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "openai: create chat completion")
	}

	return fromSDKCompletion(completion)
}

// --- SDK type conversion helpers ---

func toSDKMessages(msgs []Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, len(msgs))
	for i, m := range msgs {
		switch m.Role {
		case "system":
			out[i] = sdk.SystemMessage(m.Content)
		default:
			out[i] = sdk.UserMessage(m.Content)
		}
	}
	return out
}

func fromSDKCompletion(completion *sdk.ChatCompletion) (*ChatResponse, error) {
	if len(completion.Choices) == 0 {
		return nil, eris.New("openai: response contains no choices")
	}
	choice := completion.Choices[0]

	resp := &ChatResponse{
		ID:    completion.ID,
		Model: completion.Model,
		Text:  choice.Message.Content,
		Usage: TokenUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	}

	for _, a := range choice.Message.Annotations {
		if a.Type != "url_citation" {
			continue
		}
		resp.Annotations = append(resp.Annotations, Annotation{
			URL:   a.URLCitation.URL,
			Title: a.URLCitation.Title,
		})
	}

	return resp, nil
}
