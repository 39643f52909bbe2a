package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/infra/metrics"
	"commerce-chat-bot/internal/usecase"
)

// inboundPayload is the normalized body every provider bridge posts to us.
type inboundPayload struct {
	EventID    string `json:"event_id"`
	CustomerID string `json:"customer_id"`
	Text       string `json:"text,omitempty"`
	ReplyID    string `json:"reply_id,omitempty"`
}

// Server accepts provider webhooks. Responses follow ack-after-claim:
// once an event is claimed, processing failures are our problem, not the
// provider's, so they still get a 200.
type Server struct {
	verifier *Verifier
	pipeline usecase.PipelineUseCase
	log      *zerolog.Logger
}

func NewServer(verifier *Verifier, pipeline usecase.PipelineUseCase, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "webhook").Logger()
	return &Server{verifier: verifier, pipeline: pipeline, log: &l}
}

// Handler builds the full route tree with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/webhook/{provider}", s.handleWebhook)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return instrument(r, s.log, 30*time.Second)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	log := s.log.With().Str("provider", provider).Logger()

	body, err := s.verifier.ReadAndVerify(r)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPayloadTooLarge):
			metrics.IncWebhookRequest(provider, "too_large")
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, domain.ErrInvalidSignature):
			metrics.IncWebhookRequest(provider, "bad_signature")
			log.Warn().Msg("webhook signature rejected")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
		default:
			metrics.IncWebhookRequest(provider, "bad_payload")
			http.Error(w, "bad request", http.StatusBadRequest)
		}
		return
	}

	var p inboundPayload
	if err := json.Unmarshal(body, &p); err != nil || p.EventID == "" || p.CustomerID == "" {
		metrics.IncWebhookRequest(provider, "bad_payload")
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	ev := model.InboundEvent{
		EventID:    fmt.Sprintf("%s-%s", provider, p.EventID),
		CustomerID: p.CustomerID,
		Text:       p.Text,
		ReplyID:    p.ReplyID,
		Payload:    body,
		ReceivedAt: time.Now().UTC(),
	}

	err = s.pipeline.ProcessInbound(r.Context(), ev)
	switch {
	case err == nil, errors.Is(err, domain.ErrDuplicateEvent):
		metrics.IncWebhookRequest(provider, "accepted")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	case errors.Is(err, domain.ErrClaimStoreOffline):
		// Not claimed; a provider retry is safe and wanted.
		metrics.IncWebhookRequest(provider, "unavailable")
		log.Error().Err(err).Msg("claim store unavailable")
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrConversationBusy):
		// The lock is taken before the claim, so the event is still
		// unclaimed. Redelivery will find the conversation free.
		metrics.IncWebhookRequest(provider, "busy")
		log.Info().Msg("conversation busy, asking provider to redeliver")
		http.Error(w, "busy, retry later", http.StatusServiceUnavailable)
	default:
		// Claimed but processing failed; retrying would be a duplicate.
		metrics.IncWebhookRequest(provider, "accepted")
		log.Error().Err(err).Str("event_id", ev.EventID).Msg("inbound processing failed after claim")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
