package adapter

import "context"

// ModelPrediction is the raw output of an external intent model. Type is a
// candidate from the closed vocabulary; the classifier use case validates it
// and prunes slots.
type ModelPrediction struct {
	Type       string
	Slots      map[string]string
	Confidence float64
}

// IntentModel is an external-model-assisted free-text classifier.
type IntentModel interface {
	Predict(ctx context.Context, text string) (ModelPrediction, error)
}
