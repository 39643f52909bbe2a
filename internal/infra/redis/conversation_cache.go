package redis

import (
	"context"
	"encoding/json"
	"time"

	"commerce-chat-bot/internal/domain/model"
)

// ConversationCache is a TTL'd read-through cache for conversation records.
// The postgres repo decorator owns invalidation.
type ConversationCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewConversationCache(client RedisClient, ttl time.Duration) *ConversationCache {
	return &ConversationCache{client: client, ttl: ttl}
}

func convKey(customerID string) string { return "conversation:" + customerID }

func (c *ConversationCache) Store(ctx context.Context, conv *model.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, convKey(conv.CustomerID), data, c.ttl)
}

func (c *ConversationCache) Get(ctx context.Context, customerID string) (*model.Conversation, error) {
	data, err := c.client.Get(ctx, convKey(customerID))
	if err != nil {
		return nil, err
	}
	var conv model.Conversation
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *ConversationCache) Delete(ctx context.Context, customerID string) error {
	return c.client.Del(ctx, convKey(customerID))
}
