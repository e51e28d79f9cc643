//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"financeflow/internal/domain"
	"financeflow/internal/domain/model"
)

func newTestQueue(t *testing.T) (*JobQueue, *fakeClock) {
	t.Helper()
	client, _ := newTestClient(t)
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	q := NewJobQueue(client, QueueOptions{Name: "test", LeaseTimeout: time.Minute}).WithClock(clock.Now)
	return q, clock
}

func sampleJob(msgID string) *model.Job {
	return &model.Job{
		UserID:    "user-1",
		Message:   "coffee 45k",
		Timestamp: time.UnixMilli(1_700_000_000_000).UTC(),
		Source:    model.SourceTelegram,
		ChatID:    "42",
		MessageID: msgID,
	}
}

func TestJobQueue_EnqueueClaimComplete(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	h, err := q.Enqueue(ctx, sampleJob("m1"))
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if h.ID == "" || h.Duplicate {
		t.Fatalf("unexpected handle %+v", h)
	}

	qj, err := q.Claim(ctx)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if qj.ID != h.ID || qj.Job.Message != "coffee 45k" || qj.Job.ChatID != "42" {
		t.Fatalf("claimed wrong job: %+v", qj)
	}
	if qj.MaxAttempts != 3 {
		t.Errorf("expected max attempts 3, got %d", qj.MaxAttempts)
	}

	if _, err := q.Claim(ctx); !errors.Is(err, domain.ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty while job is leased, got %v", err)
	}

	if err := q.Complete(ctx, qj); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	st, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if st.Completed != 1 || st.Active != 0 || st.Waiting != 0 {
		t.Fatalf("unexpected stats after complete: %+v", st)
	}
}

func TestJobQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	first, _ := q.Enqueue(ctx, sampleJob("a"))
	second, _ := q.Enqueue(ctx, sampleJob("b"))

	got1, err := q.Claim(ctx)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	got2, err := q.Claim(ctx)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if got1.ID != first.ID || got2.ID != second.ID {
		t.Fatalf("expected FIFO order %s,%s got %s,%s", first.ID, second.ID, got1.ID, got2.ID)
	}
}

func TestJobQueue_Deduplicates(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	h1, err := q.Enqueue(ctx, sampleJob("same"))
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	h2, err := q.Enqueue(ctx, sampleJob("same"))
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if !h2.Duplicate || h2.ID != h1.ID {
		t.Fatalf("expected duplicate of %s, got %+v", h1.ID, h2)
	}

	// Jobs without a message id are never deduplicated.
	if h, _ := q.Enqueue(ctx, sampleJob("")); h.Duplicate {
		t.Fatal("job without message id must not be treated as duplicate")
	}
	if h, _ := q.Enqueue(ctx, sampleJob("")); h.Duplicate {
		t.Fatal("job without message id must not be treated as duplicate")
	}

	// The same message id in another chat is a different message.
	other := sampleJob("same")
	other.UserID = "user-2"
	other.ChatID = "222"
	h3, err := q.Enqueue(ctx, other)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if h3.Duplicate || h3.ID == h1.ID {
		t.Fatalf("message from another chat must be enqueued, got %+v", h3)
	}

	st, _ := q.Stats(ctx)
	if st.Waiting != 4 {
		t.Fatalf("expected 4 waiting jobs, got %d", st.Waiting)
	}
}

func TestJobQueue_RejectsInvalidJob(t *testing.T) {
	q, _ := newTestQueue(t)
	j := sampleJob("x")
	j.Message = "   "
	if _, err := q.Enqueue(context.Background(), j); !errors.Is(err, domain.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestJobQueue_RetryWithBackoffThenDeadLetter(t *testing.T) {
	ctx := context.Background()
	q, clock := newTestQueue(t)
	cause := errors.New("ai unavailable")

	if _, err := q.Enqueue(ctx, sampleJob("m1")); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	delays := []time.Duration{2 * time.Second, 4 * time.Second}
	for attempt, delay := range delays {
		qj, err := q.Claim(ctx)
		if err != nil {
			t.Fatalf("attempt %d: claim failed: %v", attempt+1, err)
		}
		retried, err := q.Fail(ctx, qj, cause)
		if err != nil {
			t.Fatalf("attempt %d: fail errored: %v", attempt+1, err)
		}
		if !retried {
			t.Fatalf("attempt %d: expected a retry", attempt+1)
		}

		clock.Advance(delay - time.Millisecond)
		if _, err := q.Claim(ctx); !errors.Is(err, domain.ErrQueueEmpty) {
			t.Fatalf("attempt %d: job must not be ready before %s, got %v", attempt+1, delay, err)
		}
		clock.Advance(time.Millisecond)
	}

	qj, err := q.Claim(ctx)
	if err != nil {
		t.Fatalf("third claim failed: %v", err)
	}
	if qj.Attempts != 2 || qj.LastError != "ai unavailable" {
		t.Fatalf("unexpected envelope before final attempt: %+v", qj)
	}
	retried, err := q.Fail(ctx, qj, cause)
	if err != nil {
		t.Fatalf("final fail errored: %v", err)
	}
	if retried {
		t.Fatal("third failure must not be retried")
	}

	clock.Advance(time.Hour)
	if _, err := q.Claim(ctx); !errors.Is(err, domain.ErrQueueEmpty) {
		t.Fatalf("dead job must never be claimed again, got %v", err)
	}

	failed, err := q.ListFailed(ctx, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Attempts != 3 || failed[0].FinishedAt == nil {
		t.Fatalf("unexpected failed set: %+v", failed)
	}
}

func TestJobQueue_ExpiredLeaseIsRedelivered(t *testing.T) {
	ctx := context.Background()
	q, clock := newTestQueue(t)

	h, _ := q.Enqueue(ctx, sampleJob("m1"))
	if _, err := q.Claim(ctx); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	clock.Advance(time.Minute + time.Second)
	qj, err := q.Claim(ctx)
	if err != nil {
		t.Fatalf("expected redelivery after lease expiry, got %v", err)
	}
	if qj.ID != h.ID {
		t.Fatalf("redelivered wrong job %s", qj.ID)
	}
	if qj.Attempts != 1 || qj.LastError != "lease expired" {
		t.Fatalf("expired lease must count as an attempt, got %+v", qj)
	}
	if qj.Job.Message != "coffee 45k" || qj.Job.ChatID != "42" || !qj.Job.Timestamp.Equal(time.UnixMilli(1_700_000_000_000)) {
		t.Fatalf("job payload changed on redelivery: %+v", qj.Job)
	}
}

func TestJobQueue_RepeatedLeaseExpiryEndsInFailedSet(t *testing.T) {
	ctx := context.Background()
	q, clock := newTestQueue(t)

	h, _ := q.Enqueue(ctx, sampleJob("m1"))
	for i := 1; i <= 2; i++ {
		qj, err := q.Claim(ctx)
		if err != nil {
			t.Fatalf("claim %d failed: %v", i, err)
		}
		if qj.Attempts != i-1 {
			t.Fatalf("claim %d: expected %d attempts, got %d", i, i-1, qj.Attempts)
		}
		clock.Advance(time.Minute + time.Second)
	}
	if _, err := q.Claim(ctx); err != nil {
		t.Fatalf("third claim failed: %v", err)
	}
	clock.Advance(time.Minute + time.Second)

	if _, err := q.Claim(ctx); !errors.Is(err, domain.ErrQueueEmpty) {
		t.Fatalf("job must not be redelivered after three expired leases, got %v", err)
	}
	failed, err := q.ListFailed(ctx, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != h.ID || failed[0].Attempts != 3 || failed[0].FinishedAt == nil {
		t.Fatalf("unexpected failed set: %+v", failed)
	}
	st, _ := q.Stats(ctx)
	if st.Active != 0 || st.Waiting != 0 || st.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestJobQueue_StaleLeaseCannotSettle(t *testing.T) {
	ctx := context.Background()
	q, clock := newTestQueue(t)

	if _, err := q.Enqueue(ctx, sampleJob("m1")); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	stale, err := q.Claim(ctx)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	clock.Advance(time.Minute + time.Second)
	current, err := q.Claim(ctx)
	if err != nil {
		t.Fatalf("reclaim failed: %v", err)
	}

	if err := q.Complete(ctx, stale); !errors.Is(err, domain.ErrLeaseLost) {
		t.Fatalf("expected ErrLeaseLost completing a stale claim, got %v", err)
	}
	if _, err := q.Fail(ctx, stale, errors.New("late")); !errors.Is(err, domain.ErrLeaseLost) {
		t.Fatalf("expected ErrLeaseLost failing a stale claim, got %v", err)
	}
	st, _ := q.Stats(ctx)
	if st.Active != 1 || st.Completed != 0 {
		t.Fatalf("stale settle must not touch the live lease, got %+v", st)
	}

	if err := q.Complete(ctx, current); err != nil {
		t.Fatalf("current holder must complete, got %v", err)
	}
}

func TestJobQueue_RetentionIsBounded(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	q := NewJobQueue(client, QueueOptions{Name: "bounded", RemoveOnComplete: 2})

	for i := 0; i < 4; i++ {
		if _, err := q.Enqueue(ctx, sampleJob("")); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
		qj, err := q.Claim(ctx)
		if err != nil {
			t.Fatalf("claim failed: %v", err)
		}
		if err := q.Complete(ctx, qj); err != nil {
			t.Fatalf("complete failed: %v", err)
		}
	}
	st, _ := q.Stats(ctx)
	if st.Completed != 2 {
		t.Fatalf("expected 2 retained completed jobs, got %d", st.Completed)
	}
}

func TestJobQueue_RetryFailed(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	q := NewJobQueue(client, QueueOptions{Name: "redrive", Policy: model.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Second}})

	h, _ := q.Enqueue(ctx, sampleJob("m1"))
	qj, _ := q.Claim(ctx)
	if retried, _ := q.Fail(ctx, qj, errors.New("boom")); retried {
		t.Fatal("expected job to be dead after one attempt")
	}

	if err := q.RetryFailed(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
	if err := q.RetryFailed(ctx, h.ID); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	again, err := q.Claim(ctx)
	if err != nil {
		t.Fatalf("expected re-driven job, got %v", err)
	}
	if again.ID != h.ID || again.Attempts != 0 {
		t.Fatalf("unexpected re-driven envelope %+v", again)
	}
	st, _ := q.Stats(ctx)
	if st.Failed != 0 {
		t.Fatalf("expected failed set to be empty, got %d", st.Failed)
	}
}
