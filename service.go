package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const retryDelay = 2 * time.Second

// jobSource is the consuming side of jobQueue.
type jobSource interface {
	Next(ctx context.Context, timeout time.Duration) (sidekiqJob, bool, error)
}

// runner computes and stores statistics for test runs.
type runner struct {
	samples sampleSource
	results resultSink
}

func newRunner(db *sql.DB) *runner {
	store := sampleStore{db: db}
	return &runner{samples: store, results: store}
}

func (r *runner) processTestRun(ctx context.Context, testRunID int64) error {
	logger := log.With().Int64("test_run", testRunID).Str("job_id", uuid.NewString()).Logger()

	values, err := r.samples.Samples(ctx, testRunID)
	if err != nil {
		return err
	}

	res := testResult{TestRunID: testRunID}
	var calcErr error
	res.MemoryBytes = measurePeakResidentMemory(func() {
		start := time.Now()
		res.Stats, calcErr = calculateStatistics(values)
		res.Duration = time.Since(start)
	})
	if calcErr != nil {
		return fmt.Errorf("test_run %d: %w", testRunID, calcErr)
	}

	if err := r.results.Save(ctx, res); err != nil {
		return fmt.Errorf("insert test_result failed: %w", err)
	}
	logger.Info().
		Int("samples", len(values)).
		Int("outliers", len(res.Stats.Outliers)).
		Dur("duration", res.Duration).
		Float64("memory_bytes", res.MemoryBytes).
		Msg("processed test run")
	return nil
}

// runService consumes jobs until ctx is cancelled.
func (r *runner) runService(ctx context.Context, jobs jobSource, cfg WorkerConfig) error {
	log.Info().Str("queue", cfg.Queue).Strs("classes", cfg.Classes).Msg("worker started")
	for {
		if ctx.Err() != nil {
			log.Info().Msg("worker stopped")
			return nil
		}
		job, ok, err := jobs.Next(ctx, cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Msg("redis read error")
			sleepCtx(ctx, retryDelay)
			continue
		}
		if !ok {
			continue
		}
		r.handleJob(ctx, job, cfg.Classes)
	}
}

func (r *runner) handleJob(ctx context.Context, job sidekiqJob, classes []string) {
	if !slices.Contains(classes, job.Class) {
		log.Debug().Str("class", job.Class).Msg("skipping job")
		return
	}
	var id int64
	if len(job.Args) > 0 {
		id, _ = parseInt64(job.Args[0])
	}
	if id == 0 {
		log.Warn().Str("jid", job.JID).Msg("job missing test_run_id")
		return
	}
	if err := r.processTestRun(ctx, id); err != nil {
		ev := log.Error()
		if errors.Is(err, ErrNoSamples) || errors.Is(err, ErrTestRunNotFound) {
			ev = log.Warn()
		}
		ev.Err(err).Int64("test_run", id).Msg("process error")
	}
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
