package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain/ports/adapter"
)

type stubModel struct {
	pred  adapter.ModelPrediction
	err   error
	calls int
}

func (s *stubModel) Predict(ctx context.Context, text string) (adapter.ModelPrediction, error) {
	s.calls++
	return s.pred, s.err
}

func TestMultiClassifierPrefersPrimary(t *testing.T) {
	log := zerolog.Nop()
	primary := &stubModel{pred: adapter.ModelPrediction{Type: "view_cart", Confidence: 0.9}}
	fallback := &stubModel{pred: adapter.ModelPrediction{Type: "unknown"}}
	m := NewMultiClassifier(primary, fallback, &log)

	pred, err := m.Predict(context.Background(), "show my cart")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Type != "view_cart" {
		t.Errorf("type = %q", pred.Type)
	}
	if fallback.calls != 0 {
		t.Error("fallback consulted while primary healthy")
	}
}

func TestMultiClassifierFallsBack(t *testing.T) {
	log := zerolog.Nop()
	primary := &stubModel{err: errors.New("rate limited")}
	fallback := &stubModel{pred: adapter.ModelPrediction{Type: "checkout", Confidence: 0.8}}
	m := NewMultiClassifier(primary, fallback, &log)

	pred, err := m.Predict(context.Background(), "I want to pay")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Type != "checkout" {
		t.Errorf("type = %q", pred.Type)
	}
}

func TestMultiClassifierPropagatesWithoutFallback(t *testing.T) {
	log := zerolog.Nop()
	boom := errors.New("down")
	m := NewMultiClassifier(&stubModel{err: boom}, nil, &log)

	if _, err := m.Predict(context.Background(), "hi"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestParsePrediction(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		typ  string
		ok   bool
	}{
		{"plain json", `{"type":"view_product","slots":{"product_id":"p1"},"confidence":0.92}`, "view_product", true},
		{"fenced json", "```json\n{\"type\":\"checkout\",\"confidence\":0.8}\n```", "checkout", true},
		{"prose", "I think the user wants the cart", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pred, err := parsePrediction(tc.raw)
			if tc.ok && err != nil {
				t.Fatalf("parsePrediction: %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if pred.Type != tc.typ {
				t.Errorf("type = %q, want %q", pred.Type, tc.typ)
			}
		})
	}
}
