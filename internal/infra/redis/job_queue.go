package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/oklog/ulid/v2"

	"financeflow/internal/domain"
	"financeflow/internal/domain/model"
	"financeflow/internal/domain/ports/adapter"
	"financeflow/internal/infra/metrics"
)

var _ adapter.JobQueue = (*JobQueue)(nil)

type QueueOptions struct {
	Name             string
	Policy           model.RetryPolicy
	RemoveOnComplete int
	RemoveOnFail     int
	LeaseTimeout     time.Duration
	DedupeTTL        time.Duration
}

func (o *QueueOptions) normalize() {
	if o.Name == "" {
		o.Name = "message-processing"
	}
	if o.Policy.MaxAttempts <= 0 || o.Policy.BaseDelay <= 0 {
		o.Policy = model.DefaultRetryPolicy()
	}
	if o.RemoveOnComplete <= 0 {
		o.RemoveOnComplete = 10
	}
	if o.RemoveOnFail <= 0 {
		o.RemoveOnFail = 20
	}
	if o.LeaseTimeout <= 0 {
		o.LeaseTimeout = 2 * time.Minute
	}
	if o.DedupeTTL <= 0 {
		o.DedupeTTL = 24 * time.Hour
	}
}

// JobQueue is a Redis-backed at-least-once queue.
//
// Layout under queue:<name>:
//
//	jobs       hash   id -> envelope JSON for waiting, delayed and active jobs
//	wait       list   ready ids, pushed left and popped right
//	delayed    zset   ids scored by ready-at (ms)
//	active     zset   ids scored by lease deadline (ms)
//	completed  list   last N finished envelopes
//	failed     list   last N dead envelopes
//	dedupe:<k> string id of the job enqueued for idempotency key k
type JobQueue struct {
	cli  *redis.Client
	opts QueueOptions
	now  func() time.Time
}

func NewJobQueue(client *Client, opts QueueOptions) *JobQueue {
	opts.normalize()
	return &JobQueue{cli: client.cli, opts: opts, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (q *JobQueue) WithClock(now func() time.Time) *JobQueue {
	q.now = now
	return q
}

func (q *JobQueue) Name() string { return q.opts.Name }

func (q *JobQueue) key(part string) string {
	return "queue:" + q.opts.Name + ":" + part
}

func (q *JobQueue) Enqueue(ctx context.Context, job *model.Job) (model.JobHandle, error) {
	if err := job.Validate(); err != nil {
		return model.JobHandle{}, err
	}
	now := q.now().UTC()
	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()

	dedupeKey := ""
	if k := job.IdempotencyKey(); k != "" {
		dedupeKey = q.key("dedupe:" + k)
		ok, err := q.cli.SetNX(ctx, dedupeKey, id, q.opts.DedupeTTL).Result()
		if err != nil {
			return model.JobHandle{}, q.transient(err)
		}
		if !ok {
			existing, err := q.cli.Get(ctx, dedupeKey).Result()
			if err != nil && err != redis.Nil {
				return model.JobHandle{}, q.transient(err)
			}
			metrics.IncQueueEnqueue("duplicate")
			return model.JobHandle{ID: existing, Duplicate: true}, nil
		}
	}

	env := model.QueuedJob{
		ID:          id,
		Job:         *job,
		MaxAttempts: q.opts.Policy.MaxAttempts,
		EnqueuedAt:  now,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return model.JobHandle{}, fmt.Errorf("encode job: %w", err)
	}

	_, err = q.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, q.key("jobs"), id, data)
		p.LPush(ctx, q.key("wait"), id)
		return nil
	})
	if err != nil {
		if dedupeKey != "" {
			_ = q.cli.Del(ctx, dedupeKey).Err()
		}
		return model.JobHandle{}, q.transient(err)
	}
	metrics.IncQueueEnqueue("queued")
	return model.JobHandle{ID: id}, nil
}

// Due delayed jobs and expired leases are moved back to wait before popping.
// An expired lease counts as a failed attempt: the job goes to the consuming
// end so it is retried first, or to failed once its attempts are exhausted.
var luaClaim = redis.NewScript(`
local now = tonumber(ARGV[1])
local due = redis.call("ZRANGEBYSCORE", KEYS[3], "-inf", now, "LIMIT", 0, 100)
for _, id in ipairs(due) do
	redis.call("ZREM", KEYS[3], id)
	redis.call("LPUSH", KEYS[2], id)
end
local expired = redis.call("ZRANGEBYSCORE", KEYS[4], "-inf", now, "LIMIT", 0, 100)
for _, id in ipairs(expired) do
	redis.call("ZREM", KEYS[4], id)
	local raw = redis.call("HGET", KEYS[1], id)
	if raw then
		local env = cjson.decode(raw)
		env["attempts"] = (tonumber(env["attempts"]) or 0) + 1
		env["lastError"] = "lease expired"
		local max = tonumber(env["maxAttempts"]) or 0
		if max <= 0 then
			max = tonumber(ARGV[5])
		end
		if env["attempts"] >= max then
			env["finishedAt"] = ARGV[3]
			redis.call("HDEL", KEYS[1], id)
			redis.call("LPUSH", KEYS[5], cjson.encode(env))
			redis.call("LTRIM", KEYS[5], 0, tonumber(ARGV[4]) - 1)
		else
			redis.call("HSET", KEYS[1], id, cjson.encode(env))
			redis.call("RPUSH", KEYS[2], id)
		end
	end
end
while true do
	local id = redis.call("RPOP", KEYS[2])
	if not id then
		return false
	end
	local data = redis.call("HGET", KEYS[1], id)
	if data then
		redis.call("ZADD", KEYS[4], ARGV[2], id)
		return data
	end
end`)

func (q *JobQueue) Claim(ctx context.Context) (*model.QueuedJob, error) {
	now := q.now()
	deadline := now.Add(q.opts.LeaseTimeout).UnixMilli()
	keys := []string{q.key("jobs"), q.key("wait"), q.key("delayed"), q.key("active"), q.key("failed")}
	data, err := luaClaim.Run(ctx, q.cli, keys,
		now.UnixMilli(), deadline,
		now.UTC().Format(time.RFC3339Nano), q.opts.RemoveOnFail, q.opts.Policy.MaxAttempts,
	).Text()
	if err == redis.Nil {
		return nil, domain.ErrQueueEmpty
	}
	if err != nil {
		return nil, q.transient(err)
	}
	var qj model.QueuedJob
	if err := json.Unmarshal([]byte(data), &qj); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	at := now.UTC()
	qj.ProcessedAt = &at
	qj.LeasedUntil = deadline
	return &qj, nil
}

// Scripts that settle an active job first check that the caller still holds
// the lease: the active score must equal the deadline handed out by Claim.

// Moves an active job into a capped list (completed or failed).
var luaFinish = redis.NewScript(`
local score = redis.call("ZSCORE", KEYS[2], ARGV[1])
if not score or tonumber(score) ~= tonumber(ARGV[4]) then
	return 0
end
redis.call("ZREM", KEYS[2], ARGV[1])
redis.call("HDEL", KEYS[1], ARGV[1])
redis.call("LPUSH", KEYS[3], ARGV[2])
redis.call("LTRIM", KEYS[3], 0, tonumber(ARGV[3]) - 1)
return 1`)

var luaRetry = redis.NewScript(`
local score = redis.call("ZSCORE", KEYS[2], ARGV[1])
if not score or tonumber(score) ~= tonumber(ARGV[4]) then
	return 0
end
redis.call("ZREM", KEYS[2], ARGV[1])
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
redis.call("ZADD", KEYS[3], ARGV[3], ARGV[1])
return 1`)

func (q *JobQueue) Complete(ctx context.Context, qj *model.QueuedJob) error {
	at := q.now().UTC()
	qj.FinishedAt = &at
	data, err := json.Marshal(qj)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	keys := []string{q.key("jobs"), q.key("active"), q.key("completed")}
	return q.settle(ctx, luaFinish, keys, qj, data, int64(q.opts.RemoveOnComplete))
}

func (q *JobQueue) Fail(ctx context.Context, qj *model.QueuedJob, cause error) (bool, error) {
	now := q.now()
	qj.Attempts++
	if cause != nil {
		qj.LastError = cause.Error()
	}

	if !q.opts.Policy.Exhausted(qj.Attempts) {
		data, err := json.Marshal(qj)
		if err != nil {
			return false, fmt.Errorf("encode job: %w", err)
		}
		readyAt := now.Add(q.opts.Policy.Backoff(qj.Attempts)).UnixMilli()
		keys := []string{q.key("jobs"), q.key("active"), q.key("delayed")}
		if err := q.settle(ctx, luaRetry, keys, qj, data, readyAt); err != nil {
			return false, err
		}
		return true, nil
	}

	at := now.UTC()
	qj.FinishedAt = &at
	data, err := json.Marshal(qj)
	if err != nil {
		return false, fmt.Errorf("encode job: %w", err)
	}
	keys := []string{q.key("jobs"), q.key("active"), q.key("failed")}
	if err := q.settle(ctx, luaFinish, keys, qj, data, int64(q.opts.RemoveOnFail)); err != nil {
		return false, err
	}
	return false, nil
}

func (q *JobQueue) settle(ctx context.Context, script *redis.Script, keys []string, qj *model.QueuedJob, data []byte, arg int64) error {
	n, err := script.Run(ctx, q.cli, keys, qj.ID, data, arg, qj.LeasedUntil).Int()
	if err != nil {
		return q.transient(err)
	}
	if n == 0 {
		return fmt.Errorf("job %s: %w", qj.ID, domain.ErrLeaseLost)
	}
	return nil
}

func (q *JobQueue) Stats(ctx context.Context) (model.QueueStats, error) {
	var (
		wait, delayed, active, completed, failed *redis.IntCmd
	)
	_, err := q.cli.Pipelined(ctx, func(p redis.Pipeliner) error {
		wait = p.LLen(ctx, q.key("wait"))
		delayed = p.ZCard(ctx, q.key("delayed"))
		active = p.ZCard(ctx, q.key("active"))
		completed = p.LLen(ctx, q.key("completed"))
		failed = p.LLen(ctx, q.key("failed"))
		return nil
	})
	if err != nil {
		return model.QueueStats{}, q.transient(err)
	}
	s := model.QueueStats{
		Waiting:   wait.Val(),
		Delayed:   delayed.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
	}
	metrics.SetQueueDepth(q.opts.Name, s)
	return s, nil
}

func (q *JobQueue) ListFailed(ctx context.Context, limit int) ([]*model.QueuedJob, error) {
	if limit <= 0 {
		limit = q.opts.RemoveOnFail
	}
	raw, err := q.cli.LRange(ctx, q.key("failed"), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, q.transient(err)
	}
	out := make([]*model.QueuedJob, 0, len(raw))
	for _, r := range raw {
		var qj model.QueuedJob
		if err := json.Unmarshal([]byte(r), &qj); err != nil {
			continue
		}
		out = append(out, &qj)
	}
	return out, nil
}

var luaRedrive = redis.NewScript(`
if redis.call("LREM", KEYS[1], 1, ARGV[2]) == 0 then
	return 0
end
redis.call("HSET", KEYS[2], ARGV[1], ARGV[3])
redis.call("LPUSH", KEYS[3], ARGV[1])
return 1`)

// RetryFailed moves a dead job back to wait with a fresh attempt budget.
func (q *JobQueue) RetryFailed(ctx context.Context, id string) error {
	raw, err := q.cli.LRange(ctx, q.key("failed"), 0, -1).Result()
	if err != nil {
		return q.transient(err)
	}
	for _, r := range raw {
		var qj model.QueuedJob
		if err := json.Unmarshal([]byte(r), &qj); err != nil || qj.ID != id {
			continue
		}
		qj.Attempts = 0
		qj.LastError = ""
		qj.ProcessedAt = nil
		qj.FinishedAt = nil
		data, err := json.Marshal(qj)
		if err != nil {
			return fmt.Errorf("encode job: %w", err)
		}
		keys := []string{q.key("failed"), q.key("jobs"), q.key("wait")}
		n, err := luaRedrive.Run(ctx, q.cli, keys, id, r, data).Int()
		if err != nil {
			return q.transient(err)
		}
		if n == 0 {
			return fmt.Errorf("failed job %s: %w", id, domain.ErrNotFound)
		}
		return nil
	}
	return fmt.Errorf("failed job %s: %w", id, domain.ErrNotFound)
}

func (q *JobQueue) transient(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.TransientInfraError{Component: "queue", Err: err}
}
