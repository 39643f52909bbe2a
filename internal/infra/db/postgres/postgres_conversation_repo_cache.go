package postgres

import (
	"context"

	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/repository"
	"commerce-chat-bot/internal/infra/metrics"
	red "commerce-chat-bot/internal/infra/redis"
)

var _ repository.ConversationRepository = (*conversationRepoCacheDecorator)(nil)

// conversationRepoCacheDecorator keeps a hot copy of the conversation in
// Redis. Writes go through to the inner repo first so the cache never holds
// a state the database rejected.
type conversationRepoCacheDecorator struct {
	inner repository.ConversationRepository
	cache *red.ConversationCache
}

func NewConversationRepoCacheDecorator(inner repository.ConversationRepository, cache *red.ConversationCache) repository.ConversationRepository {
	return &conversationRepoCacheDecorator{inner: inner, cache: cache}
}

func (d *conversationRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, c *model.Conversation) error {
	if err := d.inner.Save(ctx, tx, c); err != nil {
		return err
	}
	if err := d.cache.Store(ctx, c); err != nil {
		// A stale cache self-heals on TTL; drop the entry and move on.
		_ = d.cache.Delete(ctx, c.CustomerID)
	}
	return nil
}

func (d *conversationRepoCacheDecorator) Find(ctx context.Context, tx repository.Tx, customerID string) (*model.Conversation, error) {
	if c, err := d.cache.Get(ctx, customerID); err == nil {
		metrics.IncCacheRequest("conversation", "hit")
		return c, nil
	}
	metrics.IncCacheRequest("conversation", "miss")

	c, err := d.inner.Find(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}
	_ = d.cache.Store(ctx, c)
	return c, nil
}
