package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/adapter"
	"commerce-chat-bot/internal/domain/ports/repository"
)

// Hook names the queue ships with.
const (
	HookSendMessage     = "send_message"
	HookSyncCatalog     = "sync_catalog"
	HookSyncStock       = "sync_stock"
	HookSweepStaleCarts = "sweep_stale_carts"
)

const (
	staleCartAge       = 48 * time.Hour
	stockSyncBatchSize = 25
)

// StandardHooks bundles the executors for the built-in hooks.
type StandardHooks struct {
	messenger     adapter.Messenger
	catalog       adapter.CatalogService
	cart          adapter.CartService
	conversations repository.ConversationRepository
	queue         *Queue
	log           *zerolog.Logger
}

func NewStandardHooks(
	messenger adapter.Messenger,
	catalog adapter.CatalogService,
	cart adapter.CartService,
	conversations repository.ConversationRepository,
	logger *zerolog.Logger,
) *StandardHooks {
	l := logger.With().Str("component", "hooks").Logger()
	return &StandardHooks{
		messenger:     messenger,
		catalog:       catalog,
		cart:          cart,
		conversations: conversations,
		log:           &l,
	}
}

// RegisterAll wires the built-in hooks into the queue. The queue reference
// lets SyncCatalog fan work back out as batch jobs.
func (h *StandardHooks) RegisterAll(q *Queue) {
	h.queue = q
	q.RegisterHook(HookSendMessage, h.SendMessage)
	q.RegisterHook(HookSyncCatalog, h.SyncCatalog)
	q.RegisterHook(HookSyncStock, h.SyncStock)
	q.RegisterHook(HookSweepStaleCarts, h.SweepStaleCarts)
}

// SendMessage delivers one outbound message. The payload is the JSON of
// model.OutboundMessage as produced by the pipeline.
func (h *StandardHooks) SendMessage(ctx context.Context, args map[string]string) (string, error) {
	var m model.OutboundMessage
	if err := json.Unmarshal([]byte(args["payload"]), &m); err != nil {
		return "", fmt.Errorf("decode outbound payload: %w", err)
	}
	if m.CustomerID == "" {
		return "", fmt.Errorf("outbound message without customer: %w", domain.ErrInvalidArgument)
	}
	if err := h.messenger.Send(ctx, m); err != nil {
		return "", fmt.Errorf("send to %s: %w", m.CustomerID, err)
	}
	return "delivered to " + m.CustomerID, nil
}

// SyncCatalog walks the catalog and fans the discovered products back out
// as fixed-size stock refresh batches. Used as a recurring job.
func (h *StandardHooks) SyncCatalog(ctx context.Context, args map[string]string) (string, error) {
	cats, err := h.catalog.ListCategories(ctx)
	if err != nil {
		return "", fmt.Errorf("list categories: %w", err)
	}
	var ids []string
	for _, c := range cats {
		ps, err := h.catalog.ListProducts(ctx, c.ID)
		if err != nil {
			return "", fmt.Errorf("list products for %s: %w", c.ID, err)
		}
		for _, p := range ps {
			ids = append(ids, p.ID)
		}
	}
	batches, err := h.queue.DispatchBatch(ctx, HookSyncStock, ids, stockSyncBatchSize, time.Now())
	if err != nil {
		return "", fmt.Errorf("dispatch stock batches: %w", err)
	}
	return fmt.Sprintf("%d categories, %d products, %d stock batches", len(cats), len(ids), len(batches)), nil
}

// SyncStock refreshes product availability: a JSON id list under "items"
// (the batch form SyncCatalog dispatches) or a single "product_id".
func (h *StandardHooks) SyncStock(ctx context.Context, args map[string]string) (string, error) {
	if raw := args["items"]; raw != "" {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return "", fmt.Errorf("decode stock batch: %w", err)
		}
		var inStock int
		for _, id := range ids {
			p, err := h.catalog.GetProduct(ctx, id)
			if err != nil {
				return "", fmt.Errorf("get product %s: %w", id, err)
			}
			if p.InStock {
				inStock++
			}
		}
		return fmt.Sprintf("%d of %d in stock", inStock, len(ids)), nil
	}

	productID := args["product_id"]
	if productID == "" {
		return "", fmt.Errorf("sync_stock requires product_id or items: %w", domain.ErrInvalidArgument)
	}
	p, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		return "", fmt.Errorf("get product %s: %w", productID, err)
	}
	if p.InStock {
		return p.ID + " in stock", nil
	}
	return p.ID + " out of stock", nil
}

// SweepStaleCarts clears the cart of a customer whose conversation went
// quiet. Activity since the job was scheduled makes it a no-op.
func (h *StandardHooks) SweepStaleCarts(ctx context.Context, args map[string]string) (string, error) {
	customerID := args["customer_id"]
	if customerID == "" {
		return "", fmt.Errorf("sweep_stale_carts requires customer_id: %w", domain.ErrInvalidArgument)
	}
	conv, err := h.conversations.Find(ctx, nil, customerID)
	if errors.Is(err, domain.ErrNotFound) {
		return "no conversation", nil
	}
	if err != nil {
		return "", fmt.Errorf("load conversation %s: %w", customerID, err)
	}
	if time.Since(conv.LastActivityAt) < staleCartAge {
		return "cart still fresh", nil
	}
	if err := h.cart.Clear(ctx, customerID); err != nil {
		return "", fmt.Errorf("clear cart %s: %w", customerID, err)
	}
	h.log.Info().Str("customer_id", customerID).Msg("stale cart cleared")
	return "cart cleared", nil
}
