package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/repository"
)

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: map[string]*model.Job{}}
}

func (m *memJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobRepo) FetchDueAndMarkRunning(ctx context.Context, now time.Time) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		due := (j.Status == model.JobStatusPending && !j.ScheduledAt.After(now)) ||
			(j.Status == model.JobStatusFailed && !j.NextRetryAt.After(now))
		if due {
			j.Status = model.JobStatusRunning
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memJobRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.JobStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[model.JobStatus]int{}
	for _, j := range m.jobs {
		out[j.Status]++
	}
	return out, nil
}

func (m *memJobRepo) ListAbandoned(ctx context.Context, tx repository.Tx, limit int) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, j := range m.jobs {
		if j.Status == model.JobStatusAbandoned {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memJobRepo) get(id string) *model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id]
}

type fakeLimiter struct {
	allow bool
	calls int
}

func (f *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	f.calls++
	return f.allow, nil
}

func testQueue(repo repository.JobRepository, limiter RateAllower) *Queue {
	log := zerolog.Nop()
	return New(repo, limiter, Limits{AdminRate: 2, AutomatedRate: 5, Window: time.Minute}, &log)
}

func noopHook(ctx context.Context, args map[string]string) (string, error) { return "ok", nil }

func TestDispatchUnregisteredHook(t *testing.T) {
	q := testQueue(newMemJobRepo(), nil)
	_, err := q.Dispatch(context.Background(), "does_not_exist", nil, time.Now())
	if !errors.Is(err, domain.ErrHookNotRegistered) {
		t.Fatalf("err = %v, want ErrHookNotRegistered", err)
	}
}

func TestDuplicateHookRegistrationPanics(t *testing.T) {
	q := testQueue(newMemJobRepo(), nil)
	q.RegisterHook("h", noopHook)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate hook registration")
		}
	}()
	q.RegisterHook("h", noopHook)
}

func TestDispatchPersistsPendingJob(t *testing.T) {
	repo := newMemJobRepo()
	q := testQueue(repo, nil)
	q.RegisterHook("h", noopHook)

	runAt := time.Now().Add(time.Hour)
	id, err := q.Dispatch(context.Background(), "h", []byte(`{"a":1}`), runAt)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	job := repo.get(id)
	if job == nil {
		t.Fatal("job not persisted")
	}
	if job.Status != model.JobStatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.Args["payload"] != `{"a":1}` {
		t.Errorf("payload = %q", job.Args["payload"])
	}
	if !job.ScheduledAt.Equal(runAt) {
		t.Errorf("scheduled_at = %v, want %v", job.ScheduledAt, runAt)
	}
}

func TestDispatchCallerRateLimits(t *testing.T) {
	t.Run("admin over budget is rejected", func(t *testing.T) {
		lim := &fakeLimiter{allow: false}
		q := testQueue(newMemJobRepo(), lim)
		q.RegisterHook("h", noopHook)

		ctx := WithCaller(context.Background(), CallerAdmin)
		_, err := q.Dispatch(ctx, "h", nil, time.Now())
		if !errors.Is(err, domain.ErrRateLimited) {
			t.Fatalf("err = %v, want ErrRateLimited", err)
		}
	})

	t.Run("internal caller is exempt", func(t *testing.T) {
		lim := &fakeLimiter{allow: false}
		q := testQueue(newMemJobRepo(), lim)
		q.RegisterHook("h", noopHook)

		if _, err := q.Dispatch(context.Background(), "h", nil, time.Now()); err != nil {
			t.Fatalf("internal dispatch: %v", err)
		}
		if lim.calls != 0 {
			t.Errorf("limiter consulted %d times for internal caller", lim.calls)
		}
	})

	t.Run("automated within budget passes", func(t *testing.T) {
		lim := &fakeLimiter{allow: true}
		q := testQueue(newMemJobRepo(), lim)
		q.RegisterHook("h", noopHook)

		ctx := WithCaller(context.Background(), CallerAutomated)
		if _, err := q.Dispatch(ctx, "h", nil, time.Now()); err != nil {
			t.Fatalf("automated dispatch: %v", err)
		}
		if lim.calls != 1 {
			t.Errorf("limiter calls = %d, want 1", lim.calls)
		}
	})
}

func TestDispatchBatch(t *testing.T) {
	repo := newMemJobRepo()
	q := testQueue(repo, nil)
	q.RegisterHook("h", noopHook)

	ids, err := q.DispatchBatch(context.Background(), "h",
		[]string{"a", "b", "c", "d", "e"}, 2, time.Now())
	if err != nil {
		t.Fatalf("DispatchBatch: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ids = %v, want 3 chunks of size <= 2", ids)
	}
	wantItems := []string{`["a","b"]`, `["c","d"]`, `["e"]`}
	for i, id := range ids {
		job := repo.get(id)
		if job == nil {
			t.Fatalf("job %s not persisted", id)
		}
		if job.Args["items"] != wantItems[i] {
			t.Errorf("chunk %d items = %q, want %q", i, job.Args["items"], wantItems[i])
		}
	}

	t.Run("zero batch size falls back to the default", func(t *testing.T) {
		ids, err := q.DispatchBatch(context.Background(), "h", []string{"x"}, 0, time.Now())
		if err != nil || len(ids) != 1 {
			t.Fatalf("ids = %v, err = %v", ids, err)
		}
	})

	t.Run("unregistered hook fails before persisting", func(t *testing.T) {
		before, _ := repo.CountByStatus(context.Background(), nil)
		if _, err := q.DispatchBatch(context.Background(), "nope", []string{"x"}, 2, time.Now()); !errors.Is(err, domain.ErrHookNotRegistered) {
			t.Fatalf("err = %v, want ErrHookNotRegistered", err)
		}
		after, _ := repo.CountByStatus(context.Background(), nil)
		if before[model.JobStatusPending] != after[model.JobStatusPending] {
			t.Error("failed batch persisted jobs")
		}
	})
}

func TestProcessorLifecycle(t *testing.T) {
	log := zerolog.Nop()

	t.Run("success is terminal", func(t *testing.T) {
		repo := newMemJobRepo()
		q := testQueue(repo, nil)
		q.RegisterHook("h", noopHook)
		p := NewProcessor(q, repo, time.Second, &log)

		id, _ := q.Dispatch(context.Background(), "h", nil, time.Now())
		job, err := repo.FetchDueAndMarkRunning(context.Background(), time.Now())
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		p.runJob(context.Background(), job)

		got := repo.get(id)
		if got.Status != model.JobStatusSucceeded {
			t.Errorf("status = %s, want succeeded", got.Status)
		}
		if got.Result != "ok" {
			t.Errorf("result = %q", got.Result)
		}
	})

	t.Run("failure schedules a retry with backoff", func(t *testing.T) {
		repo := newMemJobRepo()
		q := testQueue(repo, nil)
		boom := errors.New("provider down")
		q.RegisterHook("h", func(ctx context.Context, args map[string]string) (string, error) {
			return "", boom
		})
		p := NewProcessor(q, repo, time.Second, &log)

		id, _ := q.Dispatch(context.Background(), "h", nil, time.Now())
		before := time.Now()
		job, _ := repo.FetchDueAndMarkRunning(context.Background(), time.Now())
		p.runJob(context.Background(), job)

		got := repo.get(id)
		if got.Status != model.JobStatusFailed {
			t.Fatalf("status = %s, want failed", got.Status)
		}
		if got.RetryCount != 1 {
			t.Errorf("retry count = %d, want 1", got.RetryCount)
		}
		wantEarliest := before.Add(55 * time.Second)
		if got.NextRetryAt.Before(wantEarliest) {
			t.Errorf("next retry %v too early, want >= %v", got.NextRetryAt, wantEarliest)
		}
	})

	t.Run("max retries abandons the job", func(t *testing.T) {
		repo := newMemJobRepo()
		q := testQueue(repo, nil)
		q.RegisterHook("h", func(ctx context.Context, args map[string]string) (string, error) {
			return "", errors.New("always fails")
		})
		p := NewProcessor(q, repo, time.Second, &log)

		id, _ := q.Dispatch(context.Background(), "h", nil, time.Now())
		now := time.Now()
		for i := 0; i < model.DefaultMaxRetries; i++ {
			now = now.Add(time.Hour)
			job, err := repo.FetchDueAndMarkRunning(context.Background(), now)
			if err != nil {
				t.Fatalf("fetch attempt %d: %v", i, err)
			}
			p.runJob(context.Background(), job)
		}

		got := repo.get(id)
		if got.Status != model.JobStatusAbandoned {
			t.Fatalf("status = %s, want abandoned", got.Status)
		}
		if _, err := repo.FetchDueAndMarkRunning(context.Background(), now.Add(time.Hour)); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("abandoned job still fetchable: %v", err)
		}

		abandoned, _ := repo.ListAbandoned(context.Background(), nil, 10)
		if len(abandoned) != 1 {
			t.Errorf("abandoned list = %d entries, want 1", len(abandoned))
		}
	})
}

func TestRecurringSchedulerDispatches(t *testing.T) {
	repo := newMemJobRepo()
	q := testQueue(repo, nil)
	q.RegisterHook("tick", noopHook)
	q.ScheduleRecurring("tick", nil, 20*time.Millisecond)

	log := zerolog.Nop()
	s := NewRecurringScheduler(q, &log)
	s.Start(context.Background())
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	counts, _ := repo.CountByStatus(context.Background(), nil)
	if counts[model.JobStatusPending] < 2 {
		t.Errorf("recurring dispatched %d jobs, want >= 2", counts[model.JobStatusPending])
	}
}
