package repository

import (
	"context"
	"time"

	"commerce-chat-bot/internal/domain/model"
)

// JobRepository owns the jobs table.
type JobRepository interface {
	Save(ctx context.Context, tx Tx, job *model.Job) error
	// FetchDueAndMarkRunning atomically claims one due job (pending and
	// scheduled, or failed and past its retry time) and marks it running so
	// no other worker can pick it up. Returns domain.ErrNotFound when idle.
	FetchDueAndMarkRunning(ctx context.Context, now time.Time) (*model.Job, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.JobStatus]int, error)
	ListAbandoned(ctx context.Context, tx Tx, limit int) ([]*model.Job, error)
}
