package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the subset of *genai.Models used by GeminiChatModel.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiChatModel exposes the Gemini API as a chat model graph node.
type GeminiChatModel struct {
	models    contentGenerator
	modelName string
}

var _ model.BaseChatModel = (*GeminiChatModel)(nil)

func NewGeminiChatModel(ctx context.Context, apiKey, modelName string) (*GeminiChatModel, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if modelName = strings.TrimSpace(modelName); modelName == "" {
		modelName = defaultGeminiModel
	}

	return &GeminiChatModel{models: client.Models, modelName: modelName}, nil
}

func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	contents, config := toGeminiContents(input)
	if len(contents) == 0 {
		return nil, errors.New("no user content to send")
	}

	resp, err := m.models.GenerateContent(ctx, m.modelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(text)
		}
	}

	output := strings.TrimSpace(b.String())
	if output == "" {
		return nil, errors.New("gemini api returned empty response")
	}

	return schema.AssistantMessage(output, nil), nil
}

func (m *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// toGeminiContents maps chat messages onto Gemini contents. System messages
// become the system instruction.
func toGeminiContents(input []*schema.Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	var (
		contents []*genai.Content
		system   []*genai.Part
	)

	for _, msg := range input {
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			continue
		}

		part := &genai.Part{Text: msg.Content}
		switch msg.Role {
		case schema.System:
			system = append(system, part)
		case schema.Assistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{part}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})
		}
	}

	var config *genai.GenerateContentConfig
	if len(system) > 0 {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: system},
		}
	}

	return contents, config
}
