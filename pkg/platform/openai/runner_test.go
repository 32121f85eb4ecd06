package openai

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/pkg/platform"
)

func TestRunner_Platform(t *testing.T) {
	r := NewRunner(new(MockClient), "", "", 0)
	assert.Equal(t, model.PlatformChatGPT, r.Platform())
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(new(MockClient), "", "", 0)
	assert.Equal(t, defaultModel, r.model)
	assert.Equal(t, defaultSearchModel, r.searchModel)
	assert.Equal(t, int64(defaultMaxTokens), r.maxTokens)
}

func TestRunner_Run(t *testing.T) {
	mc := new(MockClient)
	r := NewRunner(mc, "gpt-4o", "gpt-4o-search-preview", 2048)

	resp := &ChatResponse{
		ID:    "chatcmpl_1",
		Model: "gpt-4o-2024-08-06",
		Text:  "HaloSight is an AI support platform.",
		Usage: TokenUsage{PromptTokens: 30, CompletionTokens: 9, TotalTokens: 39},
	}
	mc.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req ChatRequest) bool {
		return req.Model == "gpt-4o" &&
			req.MaxTokens == 2048 &&
			len(req.Messages) == 1 &&
			req.Messages[0].Role == "user" &&
			req.Messages[0].Content == "What is HaloSight?"
	})).Return(resp, nil)

	answer, err := r.Run(context.Background(), platform.Prompt{Text: "What is HaloSight?"})
	require.NoError(t, err)
	assert.Equal(t, "HaloSight is an AI support platform.", answer.Text)
	assert.Empty(t, answer.Citations)
	assert.Equal(t, "gpt-4o-2024-08-06", answer.Model)
	assert.Equal(t, 30, answer.InputTokens)
	assert.Equal(t, 9, answer.OutputTokens)
	mc.AssertExpectations(t)
}

func TestRunner_Run_SearchSwapsModel(t *testing.T) {
	mc := new(MockClient)
	r := NewRunner(mc, "gpt-4o", "gpt-4o-search-preview", 0)

	resp := &ChatResponse{
		Model: "gpt-4o-search-preview",
		Text:  "HaloSight ranks first.",
		Annotations: []Annotation{
			{URL: "https://rankings.example.com", Title: "Rankings"},
		},
	}
	mc.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req ChatRequest) bool {
		return req.Model == "gpt-4o-search-preview"
	})).Return(resp, nil)

	answer, err := r.Run(context.Background(), platform.Prompt{Text: "Who leads the market?", Search: true})
	require.NoError(t, err)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, model.Citation{
		URL:   "https://rankings.example.com",
		Title: "Rankings",
	}, answer.Citations[0])
	mc.AssertExpectations(t)
}

func TestRunner_Run_DedupesAnnotationsByURL(t *testing.T) {
	mc := new(MockClient)
	r := NewRunner(mc, "", "", 0)

	resp := &ChatResponse{
		Model: "gpt-4o-search-preview",
		Text:  "Two claims, one source.",
		Annotations: []Annotation{
			{URL: "https://a.example.com", Title: "A"},
			{URL: "https://a.example.com", Title: "A repeated"},
			{URL: "https://b.example.com", Title: "B"},
		},
	}
	mc.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(resp, nil)

	answer, err := r.Run(context.Background(), platform.Prompt{Text: "q", Search: true})
	require.NoError(t, err)
	require.Len(t, answer.Citations, 2)
	assert.Equal(t, "https://a.example.com", answer.Citations[0].URL)
	assert.Equal(t, "A", answer.Citations[0].Title)
	assert.Equal(t, "https://b.example.com", answer.Citations[1].URL)
}

func TestRunner_Run_EmptyTextIsError(t *testing.T) {
	mc := new(MockClient)
	r := NewRunner(mc, "", "", 0)

	mc.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(&ChatResponse{Model: "gpt-4o"}, nil)

	_, err := r.Run(context.Background(), platform.Prompt{Text: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no message content")
}

func TestRunner_Run_ClientError(t *testing.T) {
	mc := new(MockClient)
	r := NewRunner(mc, "", "", 0)

	mc.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(nil, eris.New("openai: create chat completion: boom"))

	_, err := r.Run(context.Background(), platform.Prompt{Text: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create chat completion")
}
