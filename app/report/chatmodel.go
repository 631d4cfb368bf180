package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type ModelOptions struct {
	Provider string

	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string

	GeminiAPIKey string
	GeminiModel  string
}

// NewChatModel builds the chat model for the configured provider.
func NewChatModel(ctx context.Context, opts ModelOptions) (model.BaseChatModel, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case ProviderOpenAI, "":
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai api key is required")
		}
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: opts.OpenAIBaseURL,
			APIKey:  opts.OpenAIAPIKey,
			Model:   opts.OpenAIModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai chat model: %w", err)
		}
		return chatModel, nil

	case ProviderGemini:
		return NewGeminiChatModel(ctx, opts.GeminiAPIKey, opts.GeminiModel)

	default:
		return nil, fmt.Errorf("unsupported llm provider %q", opts.Provider)
	}
}
