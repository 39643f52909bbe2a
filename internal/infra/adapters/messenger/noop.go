package messenger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/adapter"
)

// NoopMessenger logs outbound messages instead of delivering them. Used in
// dev mode and by the console demo.
type NoopMessenger struct {
	log *zerolog.Logger
}

func NewNoopMessenger(logger *zerolog.Logger) *NoopMessenger {
	l := logger.With().Str("component", "noop_messenger").Logger()
	return &NoopMessenger{log: &l}
}

func (n *NoopMessenger) Send(ctx context.Context, m model.OutboundMessage) error {
	// Simulate slight processing time and respect ctx
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	n.log.Info().
		Str("customer_id", m.CustomerID).
		Str("text", m.Text).
		Int("button_rows", len(m.Buttons)).
		Msg("outbound message")
	return nil
}

// Ensure interface compliance
var _ adapter.Messenger = (*NoopMessenger)(nil)
