package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/susu3304/warikanbot/internal/ledger"
)

type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	m := client.GenerativeModel(model)
	m.ResponseMIMEType = "application/json"
	return &Gemini{client: client, model: m, name: model}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Extract(ctx context.Context, in Input) ([]ledger.ItemInput, error) {
	var parts []genai.Part
	switch {
	case in.HasImage():
		// ImageData wants the subtype only ("png", "jpeg").
		format := strings.TrimPrefix(in.mime(), "image/")
		parts = append(parts, genai.ImageData(format, in.Image))
	case in.Text != "":
		parts = append(parts, genai.Text(in.Text))
	default:
		return nil, ErrNoItems
	}
	parts = append(parts, genai.Text(itemsPrompt))

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("gemini: empty response")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, errors.New("gemini: unexpected response part")
	}
	log.Debug().Str("model", g.name).Str("content", string(text)).Msg("gemini receipt response")
	return decodeItems(string(text))
}
