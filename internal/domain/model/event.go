package model

import "time"

// InboundEvent is one delivery from the messaging provider. EventID is the
// provider-assigned identifier and doubles as the idempotency key.
type InboundEvent struct {
	EventID    string
	CustomerID string
	Text       string
	ReplyID    string // structured button/list payload; empty for free text
	Payload    []byte // raw provider payload, kept for audit
	ReceivedAt time.Time
}
