package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *jobRepo {
	return &jobRepo{pool: pool, tm: tm}
}

func (r *jobRepo) Save(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.UpdatedAt = time.Now()

	args, err := json.Marshal(job.Args)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO jobs (id, hook, args, status, retry_count, max_retries,
                  scheduled_at, next_retry_at, last_error, result, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  retry_count = EXCLUDED.retry_count,
  next_retry_at = EXCLUDED.next_retry_at,
  last_error = EXCLUDED.last_error,
  result = EXCLUDED.result,
  updated_at = EXCLUDED.updated_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.ID, job.Hook, string(args), string(job.Status), job.RetryCount, job.MaxRetries,
		job.ScheduledAt, job.NextRetryAt, job.LastError, job.Result, job.CreatedAt, job.UpdatedAt)
	return err
}

const jobColumns = `id, hook, args, status, retry_count, max_retries,
       scheduled_at, next_retry_at, last_error, result, created_at, updated_at`

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var args, status string
	err := row.Scan(&j.ID, &j.Hook, &args, &status, &j.RetryCount, &j.MaxRetries,
		&j.ScheduledAt, &j.NextRetryAt, &j.LastError, &j.Result, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.Status = model.JobStatus(status)
	if err := json.Unmarshal([]byte(args), &j.Args); err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *jobRepo) FetchDueAndMarkRunning(ctx context.Context, now time.Time) (*model.Job, error) {
	var job *model.Job

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const fetchQuery = `
SELECT ` + jobColumns + `
FROM jobs
WHERE (status = 'pending' AND scheduled_at <= $1)
   OR (status = 'failed' AND next_retry_at <= $1)
ORDER BY scheduled_at
LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, fetchQuery, now)
		if err != nil {
			return err
		}
		fetched, err := scanJob(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}

		// Mark running so no other worker picks it up.
		fetched.Status = model.JobStatusRunning
		if err := r.Save(ctx, tx, fetched); err != nil {
			return err
		}
		job = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.JobStatus]int, error) {
	rows, err := pickRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM jobs GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.JobStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[model.JobStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *jobRepo) ListAbandoned(ctx context.Context, tx repository.Tx, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := pickRows(ctx, r.pool, tx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = 'abandoned' ORDER BY updated_at DESC LIMIT $1;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
