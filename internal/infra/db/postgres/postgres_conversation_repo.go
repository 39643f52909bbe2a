package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/repository"
	"commerce-chat-bot/internal/infra/security"
)

var _ repository.ConversationRepository = (*conversationRepo)(nil)

// conversationRepo stores the conversation context map as an encrypted JSON
// blob; addresses and payment preferences live in there.
type conversationRepo struct {
	pool *pgxpool.Pool
	enc  *security.EncryptionService
}

func NewConversationRepo(pool *pgxpool.Pool, enc *security.EncryptionService) *conversationRepo {
	return &conversationRepo{pool: pool, enc: enc}
}

func (r *conversationRepo) Save(ctx context.Context, tx repository.Tx, c *model.Conversation) error {
	blob, err := r.sealContext(c.Context)
	if err != nil {
		return fmt.Errorf("seal conversation context: %w", err)
	}

	const q = `
INSERT INTO conversations (customer_id, state, context, last_activity_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (customer_id) DO UPDATE SET
  state=$2, context=$3, last_activity_at=$4, updated_at=$6;`

	_, err = execSQL(ctx, r.pool, tx, q,
		c.CustomerID, string(c.State), blob, c.LastActivityAt, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *conversationRepo) Find(ctx context.Context, tx repository.Tx, customerID string) (*model.Conversation, error) {
	const q = `
SELECT customer_id, state, context, last_activity_at, created_at, updated_at
  FROM conversations WHERE customer_id=$1;`

	row, err := pickRow(ctx, r.pool, tx, q, customerID)
	if err != nil {
		return nil, err
	}
	var c model.Conversation
	var state, blob string
	if err := row.Scan(&c.CustomerID, &state, &blob, &c.LastActivityAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c.State = model.ConversationState(state)
	c.Context, err = r.openContext(blob)
	if err != nil {
		return nil, fmt.Errorf("open conversation context: %w", err)
	}
	return &c, nil
}

func (r *conversationRepo) sealContext(m map[string]string) (string, error) {
	if m == nil {
		m = map[string]string{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	if r.enc == nil {
		return string(raw), nil
	}
	return r.enc.Encrypt(string(raw))
}

func (r *conversationRepo) openContext(blob string) (map[string]string, error) {
	if blob == "" {
		return map[string]string{}, nil
	}
	raw := blob
	if r.enc != nil {
		var err error
		raw, err = r.enc.Decrypt(blob)
		if err != nil {
			return nil, err
		}
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}
