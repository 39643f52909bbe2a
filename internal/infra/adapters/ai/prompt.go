package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/adapter"
)

// classifyPrompt instructs the model to emit exactly one JSON object from
// the closed intent vocabulary. Both providers share it.
func classifyPrompt(text string) string {
	var b strings.Builder
	b.WriteString("You classify shopping chat messages. Respond with ONLY a JSON object, no prose:\n")
	b.WriteString(`{"type":"<intent>","slots":{},"confidence":<0..1>}` + "\n")
	b.WriteString("Valid intents: ")
	for i, t := range model.AllIntentTypes() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(t))
	}
	b.WriteString("\nSlot keys when applicable: category_id, product_id, variation_id, quantity, address, payment_method.\n")
	b.WriteString("Use intent \"free_text\" for chitchat and \"unknown\" when unsure.\n")
	b.WriteString("Message: ")
	b.WriteString(text)
	return b.String()
}

// parsePrediction decodes the model's JSON reply, tolerating code fences.
func parsePrediction(raw string) (adapter.ModelPrediction, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var out struct {
		Type       string            `json:"type"`
		Slots      map[string]string `json:"slots"`
		Confidence float64           `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return adapter.ModelPrediction{}, fmt.Errorf("model reply is not prediction JSON: %w", err)
	}
	return adapter.ModelPrediction{
		Type:       out.Type,
		Slots:      out.Slots,
		Confidence: out.Confidence,
	}, nil
}
