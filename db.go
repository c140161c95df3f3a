package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lib/pq"
)

// ErrTestRunNotFound is returned when a test run id has no test_runs row.
var ErrTestRunNotFound = errors.New("test run not found")

const (
	existsTestRunSQL = `SELECT EXISTS(SELECT 1 FROM test_runs WHERE id = $1)`

	taskWindowSQL = `
SELECT tasks.page, tasks.per_page
FROM tasks
JOIN handlers ON handlers.task_id = tasks.id
JOIN test_runs ON test_runs.handler_id = handlers.id
WHERE test_runs.id = $1
LIMIT 1`

	samplesSQL = `SELECT value FROM samples ORDER BY id ASC LIMIT $1 OFFSET $2`

	insertResultSQL = `
INSERT INTO test_results
  (test_run_id, mean, median, q1, q3, min, max, standard_deviation, iqr, outliers, duration, memory, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW(),NOW())`
)

// buildDSN returns the database URL when no database name is configured and a
// lib/pq key/value string otherwise.
func buildDSN(cfg PostgresConfig) (string, error) {
	if cfg.DB == "" {
		if cfg.URL == "" {
			return "", errors.New("POSTGRES_DB not set; set env vars or DATABASE_URL")
		}
		return cfg.URL, nil
	}
	params := [][2]string{
		{"host", cmpOr(cfg.Host, "localhost")},
		{"port", cmpOr(cfg.Port, "5432")},
		{"user", cfg.User},
		{"password", cfg.Password},
		{"dbname", cfg.DB},
		{"sslmode", "disable"},
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p[0] + "=" + quoteDSNValue(p[1])
	}
	return strings.Join(parts, " "), nil
}

// cmpOr returns the first of its arguments that is not the zero value
// (same as cmp.Or, which needs Go 1.22).
func cmpOr[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// quoteDSNValue single-quotes empty values and values lib/pq would split.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	return "'" + dsnEscaper.Replace(v) + "'"
}

// taskWindow is the page of the samples table a task benchmarks against.
type taskWindow struct {
	page    int // 1-based
	perPage int
}

// newTaskWindow treats missing and non-positive columns as 1.
func newTaskWindow(page, perPage sql.NullInt64) taskWindow {
	w := taskWindow{page: 1, perPage: 1}
	if page.Valid && page.Int64 > 0 {
		w.page = int(page.Int64)
	}
	if perPage.Valid && perPage.Int64 > 0 {
		w.perPage = int(perPage.Int64)
	}
	return w
}

func (w taskWindow) limitOffset() (limit, offset int) {
	limit = max(w.perPage, 1)
	return limit, (max(w.page, 1) - 1) * limit
}

// testResult is one row of test_results.
type testResult struct {
	TestRunID   int64
	Stats       Stats
	Duration    time.Duration
	MemoryBytes float64
}

// sampleSource yields the sample set attached to a test run.
type sampleSource interface {
	Samples(ctx context.Context, testRunID int64) ([]float64, error)
}

// resultSink persists computed results.
type resultSink interface {
	Save(ctx context.Context, res testResult) error
}

// sampleStore is the Postgres side of the worker. It reads samples through
// the task window of a test run and writes test_results rows.
type sampleStore struct {
	db *sql.DB
}

func (s sampleStore) exists(ctx context.Context, testRunID int64) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, existsTestRunSQL, testRunID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// window falls back to page 1 of size 1 when the run has no task.
func (s sampleStore) window(ctx context.Context, testRunID int64) (taskWindow, error) {
	var page, perPage sql.NullInt64
	err := s.db.QueryRowContext(ctx, taskWindowSQL, testRunID).Scan(&page, &perPage)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return taskWindow{}, err
	}
	return newTaskWindow(page, perPage), nil
}

// samplesIn skips NULL values.
func (s sampleStore) samplesIn(ctx context.Context, w taskWindow) ([]float64, error) {
	limit, offset := w.limitOffset()
	rows, err := s.db.QueryContext(ctx, samplesSQL, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]float64, 0, limit)
	for rows.Next() {
		var v sql.NullFloat64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v.Valid {
			values = append(values, v.Float64)
		}
	}
	return values, rows.Err()
}

func (s sampleStore) Samples(ctx context.Context, testRunID int64) ([]float64, error) {
	ok, err := s.exists(ctx, testRunID)
	if err != nil {
		return nil, fmt.Errorf("lookup test run %d: %w", testRunID, err)
	}
	if !ok {
		return nil, fmt.Errorf("test_runs id %d: %w", testRunID, ErrTestRunNotFound)
	}
	w, err := s.window(ctx, testRunID)
	if err != nil {
		return nil, fmt.Errorf("fetch task window failed: %w", err)
	}
	values, err := s.samplesIn(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("fetch samples failed: %w", err)
	}
	return values, nil
}

func (s sampleStore) Save(ctx context.Context, res testResult) error {
	st := res.Stats
	_, err := s.db.ExecContext(ctx, insertResultSQL,
		res.TestRunID,
		st.Mean, st.Median, st.Q1, st.Q3, st.Min, st.Max, nullableFloat(st.StdDev),
		st.IQR, pq.Array(st.Outliers),
		res.Duration.Seconds(), res.MemoryBytes,
	)
	return err
}

// nullableFloat maps NaN to SQL NULL; Postgres would otherwise store 'NaN'.
func nullableFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
