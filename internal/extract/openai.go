package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/susu3304/warikanbot/internal/ledger"
)

// OpenAI reads receipts with a chat completion model. Any OpenAI compatible endpoint
// (for example OpenRouter) works by setting baseURL.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *OpenAI) Extract(ctx context.Context, in Input) ([]ledger.ItemInput, error) {
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: itemsPrompt}}
	switch {
	case in.HasImage():
		uri := fmt.Sprintf("data:%s;base64,%s", in.mime(), base64.StdEncoding.EncodeToString(in.Image))
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: uri, Detail: openai.ImageURLDetailAuto},
		})
	case in.Text != "":
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: in.Text})
	default:
		return nil, ErrNoItems
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty response")
	}
	content := resp.Choices[0].Message.Content
	log.Debug().Str("model", c.model).Str("content", content).Msg("openai receipt response")
	return decodeItems(content)
}
