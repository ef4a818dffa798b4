package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	KeyJobs       = "mail:jobs"
	KeyProcessing = "mail:jobs:processing"
	KeyDead       = "mail:jobs:dead"
)

// ErrNoJob is returned by Pop when the queue stayed empty for the whole timeout
var ErrNoJob = errors.New("no mail job available")

// Queue is a reliable list-based job queue. A popped job stays in the
// processing list until it is acked, retried or dead-lettered.
type Queue struct {
	rdb *redis.Client
}

// NewQueue creates a queue on rdb
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Push appends job to the queue
func (q *Queue) Push(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.rdb.LPush(ctx, KeyJobs, data).Err(); err != nil {
		return fmt.Errorf("lpush job: %w", err)
	}
	return nil
}

// Pop blocks up to timeout for the next job and moves it to the processing
// list. The raw payload is returned for Ack, Retry and DeadLetter.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*Job, string, error) {
	raw, err := q.rdb.BRPopLPush(ctx, KeyJobs, KeyProcessing, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, "", ErrNoJob
	}
	if err != nil {
		return nil, "", fmt.Errorf("brpoplpush job: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, raw, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, raw, nil
}

// Ack removes a finished job from the processing list
func (q *Queue) Ack(ctx context.Context, raw string) error {
	if err := q.rdb.LRem(ctx, KeyProcessing, 1, raw).Err(); err != nil {
		return fmt.Errorf("lrem job: %w", err)
	}
	return nil
}

// Retry puts job back on the queue with its updated attempt count
func (q *Queue) Retry(ctx context.Context, raw string, job *Job) error {
	return q.move(ctx, raw, job, KeyJobs)
}

// DeadLetter parks job on the dead list for manual inspection
func (q *Queue) DeadLetter(ctx context.Context, raw string, job *Job) error {
	return q.move(ctx, raw, job, KeyDead)
}

func (q *Queue) move(ctx context.Context, raw string, job *Job, dest string) error {
	payload := raw
	if job != nil {
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		payload = string(data)
	}

	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, KeyProcessing, 1, raw)
		pipe.LPush(ctx, dest, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("move job to %s: %w", dest, err)
	}
	return nil
}

// Recover moves jobs abandoned in the processing list back onto the queue.
// It must only run while no worker is consuming.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.rdb.RPopLPush(ctx, KeyProcessing, KeyJobs).Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("recover processing jobs: %w", err)
		}
		moved++
	}
}

// Depth returns the number of queued, in-flight and dead jobs
func (q *Queue) Depth(ctx context.Context) (queued, processing, dead int64, err error) {
	pipe := q.rdb.Pipeline()
	queuedCmd := pipe.LLen(ctx, KeyJobs)
	processingCmd := pipe.LLen(ctx, KeyProcessing)
	deadCmd := pipe.LLen(ctx, KeyDead)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, 0, fmt.Errorf("queue depth: %w", err)
	}
	return queuedCmd.Val(), processingCmd.Val(), deadCmd.Val(), nil
}
