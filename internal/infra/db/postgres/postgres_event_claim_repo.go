package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"commerce-chat-bot/internal/domain/ports/repository"
)

var _ repository.EventClaimRepository = (*eventClaimRepo)(nil)

// eventClaimRepo records one permanent row per admitted event. The primary
// key makes the insert the admission decision itself.
type eventClaimRepo struct {
	pool *pgxpool.Pool
}

func NewEventClaimRepo(pool *pgxpool.Pool) *eventClaimRepo {
	return &eventClaimRepo{pool: pool}
}

// Claim returns true when this call inserted the row, false when the event
// was already claimed. Errors mean the store could not answer; callers must
// treat that as "not claimed".
func (r *eventClaimRepo) Claim(ctx context.Context, eventID, customerID string, receivedAt time.Time) (bool, error) {
	const q = `
INSERT INTO event_claims (event_id, customer_id, received_at, claimed_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (event_id) DO NOTHING;`

	tag, err := r.pool.Exec(ctx, q, eventID, customerID, receivedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
