package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/repository"
	"commerce-chat-bot/internal/infra/metrics"
	red "commerce-chat-bot/internal/infra/redis"
)

// Hook is the unit of work a job executes. The returned string is a short
// result summary stored on the job.
type Hook func(ctx context.Context, args map[string]string) (string, error)

// RateAllower is satisfied by the redis rate limiter.
type RateAllower interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Limits configures per-caller dispatch budgets.
type Limits struct {
	AdminRate     int
	AutomatedRate int
	Window        time.Duration
}

// Queue owns job admission. Work is persisted first and executed by the
// processor; Dispatch returning nil means the job will eventually run.
type Queue struct {
	repo    repository.JobRepository
	limiter RateAllower
	limits  Limits
	log     *zerolog.Logger

	mu    sync.RWMutex
	hooks map[string]Hook

	recurring []recurringSpec
}

type recurringSpec struct {
	hook     string
	args     map[string]string
	interval time.Duration
}

func New(repo repository.JobRepository, limiter RateAllower, limits Limits, logger *zerolog.Logger) *Queue {
	if limits.Window <= 0 {
		limits.Window = time.Minute
	}
	l := logger.With().Str("component", "queue").Logger()
	return &Queue{
		repo:    repo,
		limiter: limiter,
		limits:  limits,
		log:     &l,
		hooks:   map[string]Hook{},
	}
}

// RegisterHook binds a hook name to its executor. Dispatching to a name
// that was never registered fails with domain.ErrHookNotRegistered.
func (q *Queue) RegisterHook(name string, fn Hook) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, dup := q.hooks[name]; dup {
		panic(fmt.Sprintf("queue: hook %q registered twice", name))
	}
	q.hooks[name] = fn
}

func (q *Queue) hook(name string) (Hook, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	fn, ok := q.hooks[name]
	return fn, ok
}

// Dispatch persists one job for the given hook. The payload lands in the
// job args under "payload".
func (q *Queue) Dispatch(ctx context.Context, hook string, payload []byte, runAt time.Time) (string, error) {
	return q.dispatchArgs(ctx, hook, map[string]string{"payload": string(payload)}, runAt)
}

// DispatchArgs is Dispatch for hooks that take structured args.
func (q *Queue) DispatchArgs(ctx context.Context, hook string, args map[string]string, runAt time.Time) (string, error) {
	return q.dispatchArgs(ctx, hook, args, runAt)
}

func (q *Queue) dispatchArgs(ctx context.Context, hook string, args map[string]string, runAt time.Time) (string, error) {
	if _, ok := q.hook(hook); !ok {
		return "", fmt.Errorf("dispatch %q: %w", hook, domain.ErrHookNotRegistered)
	}
	if err := q.allowCaller(ctx); err != nil {
		return "", err
	}

	job := model.NewJob(uuid.NewString(), hook, args, runAt)
	if err := q.repo.Save(ctx, nil, job); err != nil {
		return "", fmt.Errorf("persist job: %w", err)
	}
	q.log.Debug().Str("job_id", job.ID).Str("hook", hook).Time("run_at", runAt).Msg("job dispatched")
	return job.ID, nil
}

const defaultBatchSize = 25

// DispatchBatch partitions items into fixed-size chunks and persists one job
// per chunk. Each job carries its slice JSON-encoded under "items". It stops
// at the first failure and returns the IDs created so far.
func (q *Queue) DispatchBatch(ctx context.Context, hook string, items []string, batchSize int, runAt time.Time) ([]string, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	ids := make([]string, 0, (len(items)+batchSize-1)/batchSize)
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		chunk, err := json.Marshal(items[start:end])
		if err != nil {
			return ids, fmt.Errorf("encode batch items: %w", err)
		}
		id, err := q.dispatchArgs(ctx, hook, map[string]string{"items": string(chunk)}, runAt)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ScheduleRecurring arranges for the hook to be dispatched every interval
// once the recurring loop starts. Must be called before StartRecurring.
func (q *Queue) ScheduleRecurring(hook string, args map[string]string, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	q.recurring = append(q.recurring, recurringSpec{hook: hook, args: args, interval: interval})
}

func (q *Queue) allowCaller(ctx context.Context) error {
	caller := CallerFromCtx(ctx)
	var limit int
	switch caller {
	case CallerAdmin:
		limit = q.limits.AdminRate
	case CallerAutomated:
		limit = q.limits.AutomatedRate
	default:
		return nil
	}
	if q.limiter == nil || limit <= 0 {
		return nil
	}
	ok, err := q.limiter.Allow(ctx, red.CallerKey(caller), limit, q.limits.Window)
	if err != nil {
		// Limiter outage must not stall the queue.
		q.log.Warn().Err(err).Str("caller", caller).Msg("rate limiter check failed")
		return nil
	}
	if !ok {
		metrics.IncDispatchDenied(caller)
		return fmt.Errorf("caller %s over budget: %w", caller, domain.ErrRateLimited)
	}
	return nil
}
