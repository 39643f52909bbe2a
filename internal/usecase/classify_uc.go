package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/adapter"
	"commerce-chat-bot/internal/infra/metrics"
)

// Compile-time check
var _ ClassifyUseCase = (*classifyUC)(nil)

// ClassifyUseCase maps one inbound event to a typed Intent. It never fails:
// anything unparseable or low-confidence degrades to the unknown intent.
type ClassifyUseCase interface {
	Classify(ctx context.Context, ev *model.InboundEvent) model.Intent
}

type classifyUC struct {
	predictor adapter.IntentModel
	threshold float64
	timeout   time.Duration
	log       *zerolog.Logger
}

func NewClassifyUseCase(predictor adapter.IntentModel, threshold float64, timeout time.Duration, logger *zerolog.Logger) *classifyUC {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.5
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	l := logger.With().Str("component", "classifier").Logger()
	return &classifyUC{predictor: predictor, threshold: threshold, timeout: timeout, log: &l}
}

// keywordIntents are deterministic shortcuts for common commands, checked
// before the model so everyday navigation never depends on it.
var keywordIntents = map[string]model.IntentType{
	"hi":       model.IntentGreeting,
	"hello":    model.IntentGreeting,
	"start":    model.IntentGreeting,
	"menu":     model.IntentGreeting,
	"catalog":  model.IntentBrowseCatalog,
	"shop":     model.IntentBrowseCatalog,
	"products": model.IntentBrowseCatalog,
	"cart":     model.IntentViewCart,
	"checkout": model.IntentCheckout,
	"confirm":  model.IntentConfirmOrder,
	"cancel":   model.IntentCancel,
	"help":     model.IntentSupport,
	"support":  model.IntentSupport,
	"agent":    model.IntentSupport,
}

func (c *classifyUC) Classify(ctx context.Context, ev *model.InboundEvent) model.Intent {
	// Structured input always wins over anything inferred from text.
	if ev.ReplyID != "" {
		if intent, ok := model.DecodeReplyID(ev.ReplyID); ok {
			metrics.IncClassification("structured")
			return intent
		}
		c.log.Warn().Str("reply_id", ev.ReplyID).Msg("unparseable structured reply id")
		metrics.IncClassification("structured_invalid")
		return model.UnknownIntent()
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		metrics.IncClassification("empty")
		return model.UnknownIntent()
	}

	if t, ok := keywordIntents[strings.ToLower(text)]; ok {
		metrics.IncClassification("keyword")
		return model.Intent{Type: t, Slots: map[string]string{}, Confidence: 1.0}
	}

	if c.predictor == nil {
		metrics.IncClassification("no_model")
		return c.freeText(text)
	}

	mctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	pred, err := c.predictor.Predict(mctx, text)
	metrics.ObserveClassifierLatency(time.Since(start), err == nil)
	if err != nil {
		// Model unavailability is never fatal; the conversation advances on
		// the safe fallback path.
		c.log.Warn().Err(err).Msg("intent model unavailable")
		metrics.IncClassification("model_error")
		return model.UnknownIntent()
	}

	intent := c.fromPrediction(text, pred)
	metrics.IncClassification(string(intent.Type))
	return intent
}

func (c *classifyUC) fromPrediction(text string, pred adapter.ModelPrediction) model.Intent {
	t := model.IntentType(strings.TrimSpace(pred.Type))
	valid := false
	for _, known := range model.AllIntentTypes() {
		if t == known {
			valid = true
			break
		}
	}
	conf := pred.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	if !valid || conf < c.threshold {
		return model.Intent{Type: model.IntentUnknown, Slots: map[string]string{}, Confidence: conf}
	}
	if t == model.IntentFreeText {
		it := c.freeText(text)
		it.Confidence = conf
		return it
	}

	slots := map[string]string{}
	for k, v := range pred.Slots {
		slots[k] = v
	}
	intent := model.Intent{Type: t, Slots: slots, Confidence: conf}
	intent.PruneSlots()
	return intent
}

func (c *classifyUC) freeText(text string) model.Intent {
	return model.Intent{
		Type:       model.IntentFreeText,
		Slots:      map[string]string{model.SlotText: text},
		Confidence: 1.0,
	}
}
