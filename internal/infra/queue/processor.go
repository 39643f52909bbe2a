package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/repository"
	"commerce-chat-bot/internal/infra/logging"
	"commerce-chat-bot/internal/infra/metrics"
)

// Processor drains due jobs through the worker pool. One Processor per
// process; concurrency comes from the pool, safety from SKIP LOCKED in
// the repo.
type Processor struct {
	queue      *Queue
	repo       repository.JobRepository
	pollEvery  time.Duration
	jobTimeout time.Duration
	log        *zerolog.Logger
}

func NewProcessor(q *Queue, repo repository.JobRepository, pollEvery time.Duration, logger *zerolog.Logger) *Processor {
	if pollEvery <= 0 {
		pollEvery = 5 * time.Second
	}
	l := logger.With().Str("component", "job_processor").Logger()
	return &Processor{
		queue:      q,
		repo:       repo,
		pollEvery:  pollEvery,
		jobTimeout: 60 * time.Second,
		log:        &l,
	}
}

// Start runs the polling loop. This should be run in a goroutine.
func (p *Processor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Msg("job processor started")
	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("job processor stopping")
			return
		case <-ticker.C:
			p.reportDepth(ctx)
			// Drain everything due right now, one pool task per job.
			for {
				if !p.claimOne(ctx, pool) {
					break
				}
			}
		}
	}
}

// claimOne fetches a single due job and hands it to the pool. Returns false
// when the queue is idle or saturated.
func (p *Processor) claimOne(ctx context.Context, pool *Pool) bool {
	job, err := p.repo.FetchDueAndMarkRunning(ctx, time.Now())
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.log.Error().Err(err).Msg("fetch due job failed")
		}
		return false
	}
	if err := pool.Submit(func(ctx context.Context) error {
		p.runJob(ctx, job)
		return nil
	}); err != nil {
		// Pool is full; put the job back so another cycle picks it up.
		job.Status = model.JobStatusPending
		_ = p.repo.Save(context.Background(), nil, job)
		return false
	}
	return true
}

func (p *Processor) runJob(ctx context.Context, job *model.Job) {
	ctx = logging.WithJobID(ctx, job.ID)
	log := p.log.With().Str("job_id", job.ID).Str("hook", job.Hook).Logger()
	start := time.Now()

	result, err := p.execute(ctx, job)

	now := time.Now()
	if err == nil {
		job.Succeed(result, now)
		metrics.IncJobProcessed(job.Hook, "succeeded")
		log.Info().Dur("duration_ms", now.Sub(start)).Msg("job succeeded")
	} else if job.Fail(err.Error(), now) {
		metrics.IncJobProcessed(job.Hook, "failed")
		log.Warn().Err(err).Int("retry", job.RetryCount).Time("next_retry_at", job.NextRetryAt).Msg("job failed, will retry")
	} else {
		metrics.IncJobProcessed(job.Hook, "abandoned")
		log.Error().Err(err).Int("retries", job.RetryCount).Msg("job abandoned after max retries")
	}

	// Background context: the outcome must land even if ctx is gone.
	if err := p.repo.Save(context.Background(), nil, job); err != nil {
		log.Error().Err(err).Msg("persist job outcome failed")
	}
}

func (p *Processor) execute(ctx context.Context, job *model.Job) (string, error) {
	fn, ok := p.queue.hook(job.Hook)
	if !ok {
		return "", fmt.Errorf("hook %q: %w", job.Hook, domain.ErrHookNotRegistered)
	}
	runCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()
	return fn(runCtx, job.Args)
}

func (p *Processor) reportDepth(ctx context.Context) {
	counts, err := p.repo.CountByStatus(ctx, nil)
	if err != nil {
		return
	}
	for _, s := range []model.JobStatus{
		model.JobStatusPending, model.JobStatusRunning,
		model.JobStatusFailed, model.JobStatusAbandoned,
	} {
		metrics.SetQueueDepth(string(s), counts[s])
	}
}
