package ai

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"commerce-chat-bot/internal/domain/ports/adapter"
)

var _ adapter.IntentModel = (*GeminiClassifier)(nil)

// GeminiClassifier implements adapter.IntentModel using the official SDK.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

func NewGeminiClassifier(ctx context.Context, apiKey, model string) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClassifier{client: c, model: model}, nil
}

func (g *GeminiClassifier) Predict(ctx context.Context, text string) (adapter.ModelPrediction, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(classifyPrompt(text), genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return adapter.ModelPrediction{}, err
	}
	raw := resp.Text()
	if raw == "" {
		return adapter.ModelPrediction{}, errors.New("gemini: empty response")
	}
	return parsePrediction(raw)
}
