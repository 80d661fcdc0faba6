package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"microclimate-engine/internal/cache"
	"microclimate-engine/internal/config"
	"microclimate-engine/internal/engine"
	"microclimate-engine/internal/generator"
	"microclimate-engine/internal/handlers"
	"microclimate-engine/internal/jobs"
	"microclimate-engine/internal/logging"
	"microclimate-engine/internal/publisher"
	"microclimate-engine/internal/timecodec"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.AppEnv, cfg.Level())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	logger.Info("starting microclimate engine", "backend", cfg.KVBackend, "port", cfg.ServerPort)

	// Хранилище снимков
	kv, err := openKV(ctx, cfg)
	if err != nil {
		return err
	}
	defer kv.Close()
	logger.Info("snapshot store ready", "backend", kv.Backend())

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	codec := timecodec.New(loc)

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := generator.NewRandSource(seed)

	pub := publisher.New(kv, src, runID, logger)
	eng := engine.New(src, codec, engine.Options{
		RunID:        runID,
		MaxSize:      cfg.MaxHistory,
		PublishEvery: cfg.PublishEvery,
		Logger:       logger,
		Sink:         pub,
	})

	// История за последние HISTORY_DAYS дней и живой режим
	end := eng.Now()
	start := end.Add(-time.Duration(cfg.HistoryDays) * 24 * time.Hour)
	if _, err := eng.Initialize(start, end, cfg.HistoryStep); err != nil {
		return err
	}
	if err := eng.Publish(ctx); err != nil {
		logger.Warn("initial snapshot publish failed", "error", err)
	}
	if err := eng.StartStreaming(cfg.StreamPeriod); err != nil {
		return err
	}
	defer eng.StopStreaming()

	// Периодический отчет о состоянии
	scheduler := cron.New()
	reporter := jobs.NewStatusReporter(eng, pub, logger)
	if _, err := reporter.Schedule(scheduler, cfg.StatusSchedule); err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	handler := handlers.NewHandler(eng, kv, handlers.Options{
		HistoryDays:  cfg.HistoryDays,
		HistoryStep:  cfg.HistoryStep,
		StreamPeriod: cfg.StreamPeriod,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		eng.StopStreaming()
		if err := eng.Publish(shutdownCtx); err != nil {
			logger.Warn("final snapshot publish failed", "error", err)
		}
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openKV открывает хранилище снимков по KV_BACKEND
func openKV(ctx context.Context, cfg *config.Config) (cache.KV, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.KVBackend {
	case config.BackendRedis:
		return cache.NewRedisCache(connectCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix, cfg.SnapshotTTL)
	case config.BackendSQLite:
		return cache.NewSQLiteKV(connectCtx, cfg.SQLitePath)
	default:
		return cache.NewMemoryKV(), nil
	}
}
