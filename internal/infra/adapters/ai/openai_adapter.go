package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"financeflow/internal/domain/ports/adapter"
)

var _ adapter.TextGenerator = (*OpenAIAdapter)(nil)

// OpenAIAdapter talks to the Chat Completions API. A custom base URL points it
// at OpenAI-compatible gateways such as Metis.
type OpenAIAdapter struct {
	client openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, baseURL, model string, opts ...option.RequestOption) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	all = append(all, opts...)
	return &OpenAIAdapter{client: openai.NewClient(all...), model: model}, nil
}

func (o *OpenAIAdapter) Name() string  { return "openai" }
func (o *OpenAIAdapter) Model() string { return o.model }

func (o *OpenAIAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.1),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}

func (o *OpenAIAdapter) Ping(ctx context.Context) error {
	_, err := o.client.Models.Get(ctx, o.model)
	return err
}
