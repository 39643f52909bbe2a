package model

import "time"

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusAbandoned JobStatus = "abandoned"
)

const DefaultMaxRetries = 3

// retryBackoff is the fixed schedule for attempts 1..3. Attempts beyond the
// schedule reuse the last delay; the sequence is non-decreasing.
var retryBackoff = []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second}

// BackoffDelay returns the wait before retry number attempt (1-based).
func BackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(retryBackoff) {
		attempt = len(retryBackoff)
	}
	return retryBackoff[attempt-1]
}

// Job is one unit of deferred work, owned by the queue until terminal.
type Job struct {
	ID          string
	Hook        string
	Args        map[string]string
	Status      JobStatus
	RetryCount  int
	MaxRetries  int
	ScheduledAt time.Time
	NextRetryAt time.Time
	LastError   string
	Result      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewJob(id, hook string, args map[string]string, at time.Time) *Job {
	if args == nil {
		args = map[string]string{}
	}
	now := time.Now()
	return &Job{
		ID:          id,
		Hook:        hook,
		Args:        args,
		Status:      JobStatusPending,
		MaxRetries:  DefaultMaxRetries,
		ScheduledAt: at,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Terminal reports whether the job has reached a final status.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusAbandoned
}

// Fail records one failed attempt. It returns true when the job will be
// retried, false when it is abandoned.
func (j *Job) Fail(errMsg string, now time.Time) bool {
	j.RetryCount++
	j.LastError = errMsg
	j.UpdatedAt = now
	if j.RetryCount >= j.MaxRetries {
		j.Status = JobStatusAbandoned
		return false
	}
	j.Status = JobStatusFailed
	j.NextRetryAt = now.Add(BackoffDelay(j.RetryCount))
	return true
}

// Succeed marks the job done with a result summary.
func (j *Job) Succeed(result string, now time.Time) {
	j.Status = JobStatusSucceeded
	j.Result = result
	j.UpdatedAt = now
}
