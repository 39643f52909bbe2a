package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/adapter"
)

type stubIntentModel struct {
	pred  adapter.ModelPrediction
	err   error
	calls int
}

func (s *stubIntentModel) Predict(ctx context.Context, text string) (adapter.ModelPrediction, error) {
	s.calls++
	return s.pred, s.err
}

func newClassifier(m adapter.IntentModel) *classifyUC {
	log := zerolog.Nop()
	return NewClassifyUseCase(m, 0.5, time.Second, &log)
}

func TestClassifyStructuredWinsOverText(t *testing.T) {
	m := &stubIntentModel{pred: adapter.ModelPrediction{Type: "support", Confidence: 0.9}}
	c := newClassifier(m)

	intent := c.Classify(context.Background(), &model.InboundEvent{
		EventID: "e1", CustomerID: "1",
		ReplyID: "product_espresso",
		Text:    "actually I want to talk to a human",
	})
	if intent.Type != model.IntentViewProduct {
		t.Fatalf("expected view_product, got %s", intent.Type)
	}
	if intent.Slot(model.SlotProductID) != "espresso" {
		t.Fatalf("expected product slot, got %+v", intent.Slots)
	}
	if m.calls != 0 {
		t.Fatal("structured input must never reach the model")
	}
}

func TestClassifyUnparseableReplyID(t *testing.T) {
	c := newClassifier(nil)
	intent := c.Classify(context.Background(), &model.InboundEvent{ReplyID: "bogus-token"})
	if intent.Type != model.IntentUnknown {
		t.Fatalf("expected unknown, got %s", intent.Type)
	}
}

func TestClassifyKeywordShortcut(t *testing.T) {
	m := &stubIntentModel{pred: adapter.ModelPrediction{Type: "unknown"}}
	c := newClassifier(m)

	intent := c.Classify(context.Background(), &model.InboundEvent{Text: "  Checkout "})
	if intent.Type != model.IntentCheckout {
		t.Fatalf("expected checkout, got %s", intent.Type)
	}
	if m.calls != 0 {
		t.Fatal("keyword match must not consult the model")
	}
}

func TestClassifyEmptyText(t *testing.T) {
	c := newClassifier(nil)
	if got := c.Classify(context.Background(), &model.InboundEvent{Text: "   "}); got.Type != model.IntentUnknown {
		t.Fatalf("expected unknown, got %s", got.Type)
	}
}

func TestClassifyNoModelFallsBackToFreeText(t *testing.T) {
	c := newClassifier(nil)
	intent := c.Classify(context.Background(), &model.InboundEvent{Text: "do you ship to Lisbon?"})
	if intent.Type != model.IntentFreeText {
		t.Fatalf("expected free_text, got %s", intent.Type)
	}
	if intent.Slot(model.SlotText) != "do you ship to Lisbon?" {
		t.Fatalf("expected original text slot, got %+v", intent.Slots)
	}
}

func TestClassifyModelPrediction(t *testing.T) {
	t.Run("confident valid prediction", func(t *testing.T) {
		m := &stubIntentModel{pred: adapter.ModelPrediction{
			Type:       "add_to_cart",
			Slots:      map[string]string{"product_id": "sencha", "quantity": "2", "color": "green"},
			Confidence: 0.92,
		}}
		intent := newClassifier(m).Classify(context.Background(), &model.InboundEvent{Text: "two sencha please"})
		if intent.Type != model.IntentAddToCart {
			t.Fatalf("expected add_to_cart, got %s", intent.Type)
		}
		// Undeclared slots are pruned.
		if _, ok := intent.Slots["color"]; ok {
			t.Fatalf("undeclared slot survived: %+v", intent.Slots)
		}
		if intent.Slot(model.SlotQuantity) != "2" {
			t.Fatalf("declared slot lost: %+v", intent.Slots)
		}
	})

	t.Run("below threshold degrades to unknown", func(t *testing.T) {
		m := &stubIntentModel{pred: adapter.ModelPrediction{Type: "checkout", Confidence: 0.3}}
		intent := newClassifier(m).Classify(context.Background(), &model.InboundEvent{Text: "hmm maybe buy"})
		if intent.Type != model.IntentUnknown {
			t.Fatalf("expected unknown, got %s", intent.Type)
		}
	})

	t.Run("type outside vocabulary degrades to unknown", func(t *testing.T) {
		m := &stubIntentModel{pred: adapter.ModelPrediction{Type: "order_pizza", Confidence: 0.99}}
		intent := newClassifier(m).Classify(context.Background(), &model.InboundEvent{Text: "gibberish"})
		if intent.Type != model.IntentUnknown {
			t.Fatalf("expected unknown, got %s", intent.Type)
		}
	})

	t.Run("model error degrades to unknown", func(t *testing.T) {
		m := &stubIntentModel{err: errors.New("timeout")}
		intent := newClassifier(m).Classify(context.Background(), &model.InboundEvent{Text: "anything"})
		if intent.Type != model.IntentUnknown {
			t.Fatalf("expected unknown, got %s", intent.Type)
		}
	})

	t.Run("free_text prediction carries original text", func(t *testing.T) {
		m := &stubIntentModel{pred: adapter.ModelPrediction{Type: "free_text", Confidence: 0.8}}
		intent := newClassifier(m).Classify(context.Background(), &model.InboundEvent{Text: "is the matcha organic?"})
		if intent.Type != model.IntentFreeText || intent.Slot(model.SlotText) != "is the matcha organic?" {
			t.Fatalf("unexpected intent: %+v", intent)
		}
	})
}
