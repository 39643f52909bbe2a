package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/repository"
	red "commerce-chat-bot/internal/infra/redis"
)

type mockInnerConversationRepo struct {
	findCalls int
	saveCalls int
	stored    map[string]*model.Conversation
}

func newMockInnerConversationRepo() *mockInnerConversationRepo {
	return &mockInnerConversationRepo{stored: map[string]*model.Conversation{}}
}

func (m *mockInnerConversationRepo) Save(ctx context.Context, tx repository.Tx, c *model.Conversation) error {
	m.saveCalls++
	m.stored[c.CustomerID] = c
	return nil
}

func (m *mockInnerConversationRepo) Find(ctx context.Context, tx repository.Tx, customerID string) (*model.Conversation, error) {
	m.findCalls++
	c, ok := m.stored[customerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func newTestCache(t *testing.T) *red.ConversationCache {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return red.NewConversationCache(red.NewClientFromRaw(cli), time.Hour)
}

func TestConversationCacheDecorator(t *testing.T) {
	ctx := context.Background()

	t.Run("second find is served from cache", func(t *testing.T) {
		inner := newMockInnerConversationRepo()
		repo := NewConversationRepoCacheDecorator(inner, newTestCache(t))

		conv := model.NewConversation("100", time.Now().UTC())
		if err := repo.Save(ctx, nil, conv); err != nil {
			t.Fatalf("Save: %v", err)
		}

		for i := 0; i < 3; i++ {
			if _, err := repo.Find(ctx, nil, "100"); err != nil {
				t.Fatalf("Find %d: %v", i, err)
			}
		}
		if inner.findCalls != 0 {
			t.Errorf("inner.findCalls = %d, want 0 (warmed by Save)", inner.findCalls)
		}
	})

	t.Run("miss falls through and warms the cache", func(t *testing.T) {
		inner := newMockInnerConversationRepo()
		repo := NewConversationRepoCacheDecorator(inner, newTestCache(t))

		conv := model.NewConversation("200", time.Now().UTC())
		inner.stored["200"] = conv

		if _, err := repo.Find(ctx, nil, "200"); err != nil {
			t.Fatalf("first Find: %v", err)
		}
		if _, err := repo.Find(ctx, nil, "200"); err != nil {
			t.Fatalf("second Find: %v", err)
		}
		if inner.findCalls != 1 {
			t.Errorf("inner.findCalls = %d, want 1", inner.findCalls)
		}
	})

	t.Run("save updates the cached copy", func(t *testing.T) {
		inner := newMockInnerConversationRepo()
		repo := NewConversationRepoCacheDecorator(inner, newTestCache(t))

		conv := model.NewConversation("300", time.Now().UTC())
		if err := repo.Save(ctx, nil, conv); err != nil {
			t.Fatalf("Save: %v", err)
		}
		conv.State = model.StateCartReview
		if err := repo.Save(ctx, nil, conv); err != nil {
			t.Fatalf("second Save: %v", err)
		}

		got, err := repo.Find(ctx, nil, "300")
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		if got.State != model.StateCartReview {
			t.Errorf("state = %s, want CART_REVIEW", got.State)
		}
	})
}
