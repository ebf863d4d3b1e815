package app

import (
	"context"
	"errors"

	"github.com/SarAA2003/QuickAi/app/config"

	openai "github.com/sashabaranov/go-openai"
)

// textCompleter generates text from a prompt. Production uses Gemini through
// its OpenAI-compatible endpoint; tests install fakes.
type textCompleter interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

var completer textCompleter

type geminiClient struct {
	client *openai.Client
	model  string
}

func newGeminiClient(cfg config.GeminiConfig) *geminiClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &geminiClient{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}
}

func (g *geminiClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
