package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSamples struct {
	values map[int64][]float64
}

func (s stubSamples) Samples(_ context.Context, id int64) ([]float64, error) {
	v, ok := s.values[id]
	if !ok {
		return nil, ErrTestRunNotFound
	}
	return v, nil
}

// scriptedJobs replays jobs and cancels once they are exhausted.
type scriptedJobs struct {
	mu     sync.Mutex
	jobs   []sidekiqJob
	errs   []error
	cancel context.CancelFunc
}

func (s *scriptedJobs) Next(ctx context.Context, _ time.Duration) (sidekiqJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return sidekiqJob{}, false, err
	}
	if len(s.jobs) == 0 {
		s.cancel()
		return sidekiqJob{}, false, ctx.Err()
	}
	job := s.jobs[0]
	s.jobs = s.jobs[1:]
	return job, true, nil
}

func newJob(class string, args ...string) sidekiqJob {
	raw := make([]json.RawMessage, len(args))
	for i, a := range args {
		raw[i] = json.RawMessage(a)
	}
	return sidekiqJob{Class: class, Args: raw, Queue: "default"}
}

func TestProcessTestRunInsertsResult(t *testing.T) {
	stubRSS(t, func() float64 { return 4096 })
	db, mock := newMockDB(t)
	r := &runner{results: sampleStore{db: db}, samples: stubSamples{values: map[int64][]float64{
		11: {1, 2, 3, 4, 5, 1000},
	}}}

	mock.ExpectExec(`INSERT INTO test_results`).
		WithArgs(int64(11), sqlmock.AnyArg(), 3.5, 2.25, 4.75, 1.0, 1000.0, sqlmock.AnyArg(),
			2.5, pq.Array([]float64{1000}), sqlmock.AnyArg(), 4096.0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, r.processTestRun(context.Background(), 11))
}

func TestProcessTestRunEmptySamples(t *testing.T) {
	stubRSS(t, func() float64 { return 0 })
	db, _ := newMockDB(t)
	r := &runner{results: sampleStore{db: db}, samples: stubSamples{values: map[int64][]float64{2: {}}}}

	err := r.processTestRun(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestProcessTestRunNotFound(t *testing.T) {
	db, _ := newMockDB(t)
	r := &runner{results: sampleStore{db: db}, samples: stubSamples{}}

	err := r.processTestRun(context.Background(), 99)
	assert.ErrorIs(t, err, ErrTestRunNotFound)
}

func TestRunServiceProcessesAcceptedJobs(t *testing.T) {
	stubRSS(t, func() float64 { return 0 })
	db, mock := newMockDB(t)
	r := &runner{results: sampleStore{db: db}, samples: stubSamples{values: map[int64][]float64{
		5: {1, 2, 3},
		6: {10, 20},
	}}}

	mock.ExpectExec(`INSERT INTO test_results`).
		WithArgs(int64(5), 2.0, 2.0, 1.5, 2.5, 1.0, 3.0, 1.0, 1.0, pq.Array([]float64{}),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO test_results`).
		WithArgs(int64(6), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			10.0, 20.0, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jobs := &scriptedJobs{
		cancel: cancel,
		jobs: []sidekiqJob{
			newJob("GoWorker", "5"),
			newJob("MailerWorker", "5"),
			newJob("GoWorker"),
			newJob("GoWorker", `"abc"`),
			newJob("GoWorker", "404"),
			newJob("RubyWorker", `"6"`),
		},
	}

	err := r.runService(ctx, jobs, WorkerConfig{
		Queue:       "default",
		Classes:     []string{"RubyWorker", "GoWorker"},
		PollTimeout: time.Second,
	})
	require.NoError(t, err)
}

func TestRunServiceRetriesAfterQueueError(t *testing.T) {
	db, _ := newMockDB(t)
	r := &runner{results: sampleStore{db: db}, samples: stubSamples{}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jobs := &scriptedJobs{cancel: cancel, errs: []error{errors.New("connection reset")}}

	start := time.Now()
	require.NoError(t, r.runService(ctx, jobs, WorkerConfig{Queue: "default", PollTimeout: time.Second}))
	assert.GreaterOrEqual(t, time.Since(start), retryDelay)
}

func TestSleepCtxCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepCtx(ctx, time.Hour))
	assert.True(t, sleepCtx(context.Background(), time.Millisecond))
}
