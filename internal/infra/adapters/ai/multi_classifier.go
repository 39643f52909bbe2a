// File: internal/infra/adapters/ai/multi_classifier.go
package ai

import (
	"context"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain/ports/adapter"
)

var _ adapter.IntentModel = (*MultiClassifier)(nil)

// MultiClassifier tries the primary model and falls back to the secondary
// when the primary errors. Both models share the prompt and vocabulary, so
// a fallback answer is interchangeable.
type MultiClassifier struct {
	primary  adapter.IntentModel
	fallback adapter.IntentModel
	log      *zerolog.Logger
}

func NewMultiClassifier(primary, fallback adapter.IntentModel, logger *zerolog.Logger) *MultiClassifier {
	l := logger.With().Str("component", "multi_classifier").Logger()
	return &MultiClassifier{primary: primary, fallback: fallback, log: &l}
}

func (m *MultiClassifier) Predict(ctx context.Context, text string) (adapter.ModelPrediction, error) {
	pred, err := m.primary.Predict(ctx, text)
	if err == nil {
		return pred, nil
	}
	if m.fallback == nil {
		return adapter.ModelPrediction{}, err
	}
	m.log.Warn().Err(err).Msg("primary intent model failed, trying fallback")
	return m.fallback.Predict(ctx, text)
}
