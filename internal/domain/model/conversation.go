package model

import (
	"strings"
	"time"
)

type ConversationState string

const (
	StateIdle             ConversationState = "IDLE"
	StateBrowsingCatalog  ConversationState = "BROWSING_CATALOG"
	StateViewingProduct   ConversationState = "VIEWING_PRODUCT"
	StateSelectingVariant ConversationState = "SELECTING_VARIANT"
	StateCartReview       ConversationState = "CART_REVIEW"
	StateAwaitingAddress  ConversationState = "AWAITING_ADDRESS"
	StateAwaitingPayment  ConversationState = "AWAITING_PAYMENT_METHOD"
	StateOrderConfirmed   ConversationState = "ORDER_CONFIRMED"
	StateSupportHandoff   ConversationState = "SUPPORT_HANDOFF"
)

// AllStates lists every reachable conversation state.
func AllStates() []ConversationState {
	return []ConversationState{
		StateIdle, StateBrowsingCatalog, StateViewingProduct,
		StateSelectingVariant, StateCartReview, StateAwaitingAddress,
		StateAwaitingPayment, StateOrderConfirmed, StateSupportHandoff,
	}
}

// Conversation is the per-customer record the state machine owns. Context is
// opaque to everything except the machine and the action handlers it invokes.
type Conversation struct {
	CustomerID     string
	State          ConversationState
	Context        map[string]string
	LastActivityAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewConversation(customerID string, now time.Time) *Conversation {
	return &Conversation{
		CustomerID:     customerID,
		State:          StateIdle,
		Context:        map[string]string{},
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// MergeContext applies a patch; empty values delete the key.
func (c *Conversation) MergeContext(patch map[string]string) {
	if c.Context == nil {
		c.Context = map[string]string{}
	}
	for k, v := range patch {
		if v == "" {
			delete(c.Context, k)
			continue
		}
		c.Context[k] = v
	}
}

func (c *Conversation) Ctx(key string) string {
	return c.Context[key]
}

func (c *Conversation) Touch(now time.Time) {
	c.LastActivityAt = now
	c.UpdatedAt = now
}

// NormalizeCustomerID collapses the external identifier (usually a phone
// number or numeric chat id) to one canonical form: digits with a single
// leading "+" when the input carried an international prefix. A leading "-"
// survives: Telegram group chats have negative ids, and dropping the sign
// would map the conversation onto a chat that does not exist.
func NormalizeCustomerID(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	plus := strings.HasPrefix(raw, "+") || strings.HasPrefix(raw, "00")
	neg := strings.HasPrefix(raw, "-")
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if !neg {
		digits = strings.TrimPrefix(digits, "00")
	}
	if digits == "" {
		return ""
	}
	switch {
	case neg:
		return "-" + digits
	case plus:
		return "+" + digits
	}
	return digits
}
