package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// sidekiqJob is the subset of the Sidekiq payload the worker reads and writes.
type sidekiqJob struct {
	Class      string            `json:"class"`
	Args       []json.RawMessage `json:"args"`
	Queue      string            `json:"queue"`
	JID        string            `json:"jid,omitempty"`
	EnqueuedAt float64           `json:"enqueued_at,omitempty"`
}

// jobQueue pops and pushes Sidekiq jobs on a single Redis list.
type jobQueue struct {
	client *redis.Client
	name   string
}

func newJobQueue(ctx context.Context, redisURL, name string) (*jobQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &jobQueue{client: client, name: name}, nil
}

// key is the Sidekiq list holding the queue.
func (q *jobQueue) key() string {
	return "queue:" + q.name
}

// Next blocks up to timeout for a job. ok is false when the wait timed out.
func (q *jobQueue) Next(ctx context.Context, timeout time.Duration) (job sidekiqJob, ok bool, err error) {
	res, err := q.client.BRPop(ctx, timeout, q.key()).Result()
	if errors.Is(err, redis.Nil) {
		return sidekiqJob{}, false, nil
	}
	if err != nil {
		return sidekiqJob{}, false, err
	}
	if len(res) != 2 {
		return sidekiqJob{}, false, fmt.Errorf("unexpected BRPOP reply: %v", res)
	}
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return sidekiqJob{}, false, fmt.Errorf("invalid job json: %w", err)
	}
	return job, true, nil
}

// Enqueue pushes a job in the format Sidekiq clients produce.
func (q *jobQueue) Enqueue(ctx context.Context, class string, args ...any) (string, error) {
	raw := make([]json.RawMessage, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("encode arg: %w", err)
		}
		raw = append(raw, b)
	}
	job := sidekiqJob{
		Class:      class,
		Args:       raw,
		Queue:      q.name,
		JID:        uuid.NewString(),
		EnqueuedAt: float64(time.Now().UnixNano()) / 1e9,
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	if err := q.client.LPush(ctx, q.key(), payload).Err(); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", class, err)
	}
	return job.JID, nil
}

func (q *jobQueue) Close() error {
	return q.client.Close()
}
