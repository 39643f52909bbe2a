package repository

import (
	"context"

	"commerce-chat-bot/internal/domain/model"
)

// ConversationRepository persists the per-customer conversation record.
// Save is an atomic upsert: state and context land together or not at all.
type ConversationRepository interface {
	Find(ctx context.Context, tx Tx, customerID string) (*model.Conversation, error)
	Save(ctx context.Context, tx Tx, c *model.Conversation) error
}
