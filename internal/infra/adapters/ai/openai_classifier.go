package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"commerce-chat-bot/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.IntentModel = (*OpenAIClassifier)(nil)

// OpenAIClassifier implements adapter.IntentModel using the Chat
// Completions API.
type OpenAIClassifier struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	model  string
	client *http.Client
}

func NewOpenAIClassifier(apiKey, base, model string) (*OpenAIClassifier, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClassifier{
		apiKey: apiKey,
		base:   base,
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (o *OpenAIClassifier) Predict(ctx context.Context, text string) (adapter.ModelPrediction, error) {
	reqBody := struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "user", Content: classifyPrompt(text)},
		},
	}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return adapter.ModelPrediction{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return adapter.ModelPrediction{}, fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return adapter.ModelPrediction{}, err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return parsePrediction(c.Message.Content)
		}
	}
	return adapter.ModelPrediction{}, errors.New("no choice content")
}
