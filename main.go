package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment from .env files for local development.
	// Prefer the Rails app .env if present.
	_ = godotenv.Load("../benchmark_ui/.env")
	_ = godotenv.Load(".env")

	var (
		configPath string
		testRunID  int64
		service    bool
		serve      bool
		enqueue    int64
	)
	flag.StringVar(&configPath, "config", "", "Optional YAML/TOML/JSON config file")
	flag.Int64Var(&testRunID, "test-run-id", 0, "ID of test_runs row to attach results to (omit to run service)")
	flag.BoolVar(&service, "service", false, "Run as background service listening to Sidekiq queue")
	flag.BoolVar(&serve, "serve", false, "Serve statistics and charts over HTTP")
	flag.Int64Var(&enqueue, "enqueue", 0, "Push a job for this test run onto the queue and exit")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if enqueue != 0 {
		if err := enqueueTestRun(ctx, cfg, enqueue); err != nil {
			log.Fatal().Err(err).Int64("test_run", enqueue).Msg("enqueue failed")
		}
		return
	}

	dsn, err := buildDSN(cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("database config error")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect error")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("database not reachable")
	}
	r := newRunner(db)

	if testRunID == 0 && flag.NArg() > 0 {
		if v, err := strconv.ParseInt(flag.Arg(0), 10, 64); err == nil {
			testRunID = v
		}
	}
	oneShot := testRunID != 0 && !service && !serve
	if oneShot {
		if err := r.processTestRun(ctx, testRunID); err != nil {
			log.Fatal().Err(err).Int64("test_run", testRunID).Msg("process error")
		}
		return
	}
	if !serve {
		service = true
	}

	g, gctx := errgroup.WithContext(ctx)
	if service {
		g.Go(func() error {
			q, err := newJobQueue(gctx, cfg.Redis.URL, cfg.Worker.Queue)
			if err != nil {
				return err
			}
			defer q.Close()
			return r.runService(gctx, q, cfg.Worker)
		})
	}
	if serve {
		app := newHTTPApp(r.samples, cfg.ChartConfig())
		g.Go(func() error {
			log.Info().Str("addr", cfg.HTTP.Addr).Msg("http listening")
			return app.Listen(cfg.HTTP.Addr)
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("worker exited")
	}
	log.Info().Msg("shutdown complete")
}

func enqueueTestRun(ctx context.Context, cfg *Config, id int64) error {
	if len(cfg.Worker.Classes) == 0 {
		return errors.New("worker.classes is empty")
	}
	q, err := newJobQueue(ctx, cfg.Redis.URL, cfg.Worker.Queue)
	if err != nil {
		return err
	}
	defer q.Close()
	jid, err := q.Enqueue(ctx, cfg.Worker.Classes[0], id)
	if err != nil {
		return err
	}
	log.Info().Str("jid", jid).Int64("test_run", id).Str("queue", cfg.Worker.Queue).Msg("enqueued")
	return nil
}
