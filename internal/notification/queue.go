package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrMalformedJob is returned by Dequeue for payloads that cannot be decoded.
// Such payloads are moved to the dead letter list.
var ErrMalformedJob = errors.New("malformed notification job")

// Delivery is a dequeued job. It stays in the processing list until it is
// acknowledged, retried or dead-lettered.
type Delivery struct {
	Job Job
	raw string
}

// Queue is an at-least-once job queue.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context, timeout time.Duration) (*Delivery, error)
	Ack(ctx context.Context, d *Delivery) error
	Retry(ctx context.Context, d *Delivery, cause error) error
	DeadLetter(ctx context.Context, d *Delivery, cause error) error
	Recover(ctx context.Context) (int, error)
}

// RedisQueue keeps pending jobs in a list, in-flight jobs in a processing
// list and exhausted jobs in a dead letter list.
type RedisQueue struct {
	client     *redis.Client
	pending    string
	processing string
	dead       string
	now        func() time.Time
}

// NewRedisQueue builds a queue rooted at key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{
		client:     client,
		pending:    key,
		processing: key + ":processing",
		dead:       key + ":dead",
		now:        time.Now,
	}
}

// Enqueue pushes a job, assigning an id and timestamp when missing.
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = q.now().UTC()
	}
	raw, err := encodeJob(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.pending, raw).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job. It returns (nil, nil) when
// the wait times out.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	raw, err := q.client.BRPopLPush(ctx, q.pending, q.processing, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	job, err := decodeJob(raw)
	if err != nil {
		_, pipeErr := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, q.processing, 1, raw)
			pipe.LPush(ctx, q.dead, raw)
			return nil
		})
		if pipeErr != nil {
			return nil, fmt.Errorf("dead-letter malformed job: %w", pipeErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	return &Delivery{Job: job, raw: raw}, nil
}

// Ack removes a finished job from the processing list.
func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	return q.client.LRem(ctx, q.processing, 1, d.raw).Err()
}

// Retry puts the job back on the pending list with its attempt count bumped.
func (q *RedisQueue) Retry(ctx context.Context, d *Delivery, cause error) error {
	return q.move(ctx, d, q.pending, cause)
}

// DeadLetter parks a job that will not be retried.
func (q *RedisQueue) DeadLetter(ctx context.Context, d *Delivery, cause error) error {
	return q.move(ctx, d, q.dead, cause)
}

func (q *RedisQueue) move(ctx context.Context, d *Delivery, dest string, cause error) error {
	job := d.Job
	job.Attempts++
	if cause != nil {
		job.LastError = cause.Error()
	}
	raw, err := encodeJob(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processing, 1, d.raw)
		pipe.LPush(ctx, dest, raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("move job %s: %w", job.ID, err)
	}
	d.Job = job
	d.raw = raw
	return nil
}

// Recover returns jobs left in the processing list by a crashed worker to the
// pending list. Call it before starting consumers.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.RPopLPush(ctx, q.processing, q.pending).Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("recover processing jobs: %w", err)
		}
		moved++
	}
}
