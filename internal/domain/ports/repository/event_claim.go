package repository

import (
	"context"
	"time"
)

// EventClaimRepository is the idempotency gate. Claim returns true exactly
// once per distinct eventID; the insert-if-absent must be a single atomic
// operation. Claims are permanent. A storage error means the gate could not
// decide and the caller must fail closed.
type EventClaimRepository interface {
	Claim(ctx context.Context, eventID, customerID string, receivedAt time.Time) (bool, error)
}
