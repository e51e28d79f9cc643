package adapter

import (
	"context"
	"time"

	"financeflow/internal/domain/model"
)

// JobProducer is the enqueue side of the message queue.
type JobProducer interface {
	Enqueue(ctx context.Context, job *model.Job) (model.JobHandle, error)
}

// JobQueue is the full queue contract used by the worker and admin surfaces.
type JobQueue interface {
	JobProducer

	// Claim leases the oldest ready job. It returns domain.ErrQueueEmpty when nothing is ready.
	Claim(ctx context.Context) (*model.QueuedJob, error)
	// Complete removes a finished job into the bounded completed window.
	Complete(ctx context.Context, qj *model.QueuedJob) error
	// Fail records an attempt failure. It either schedules a retry with backoff
	// or moves the job to the failed set once attempts are exhausted.
	Fail(ctx context.Context, qj *model.QueuedJob, cause error) (retried bool, err error)

	Stats(ctx context.Context) (model.QueueStats, error)
	ListFailed(ctx context.Context, limit int) ([]*model.QueuedJob, error)
	RetryFailed(ctx context.Context, id string) error
}

// RateLimiter is the fixed-window limiter consumed by the ingress.
type RateLimiter interface {
	// CheckLimit counts one call for userID in the current window and
	// reports whether the count is still within limit.
	CheckLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error)
}
