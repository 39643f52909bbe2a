package adapter

import (
	"context"

	"commerce-chat-bot/internal/domain/model"
)

// Messenger is the outbound side of the messaging provider. The core never
// sees the provider's wire format.
type Messenger interface {
	Send(ctx context.Context, msg model.OutboundMessage) error
}
