package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fepa-project/expense-ocr/internal/common"
	"github.com/fepa-project/expense-ocr/internal/events"
	"github.com/fepa-project/expense-ocr/internal/export"
	"github.com/fepa-project/expense-ocr/internal/ocr"
	"github.com/fepa-project/expense-ocr/internal/repository"
	"github.com/fepa-project/expense-ocr/internal/server"
	"github.com/fepa-project/expense-ocr/internal/worker"
)

func main() {
	// Setup structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time and level attributes, keep message and other variables
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not load .env file", "error", err)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, health, closeStore, err := openJobStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open job store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	sink, err := events.NewRedisSink(cfg.Events.RedisURL, cfg.Events.Channel, logger)
	if err != nil {
		logger.Error("failed to build event sink", "error", err)
		os.Exit(1)
	}
	defer sink.Close()
	if err := sink.Ping(ctx); err != nil {
		logger.Error("failed to reach redis", "error", err)
		os.Exit(1)
	}

	fetcher := ocr.NewHTTPFetcher(cfg.OCR.FetchTimeout, cfg.OCR.MaxImageBytes, logger)
	engine := ocr.NewTesseract(ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Languages:   cfg.OCR.Languages,
		TessdataDir: cfg.OCR.TessdataDir,
	}, logger)

	w := worker.New(jobs, fetcher, engine, sink, logger)
	queue := worker.NewQueue(w, logger,
		worker.WithWorkers(cfg.Worker.Workers),
		worker.WithQueueSize(cfg.Worker.QueueSize),
	)

	exporter := export.NewService(jobs, logger)
	srv := server.New(cfg.Server.HTTPAddr, jobs, queue, exporter, health, logger)

	logger.Info("expense-ocr listening", "addr", cfg.Server.HTTPAddr)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	if err := queue.Shutdown(shutdownCtx); err != nil {
		logger.Error("queue shutdown error", "error", err)
	}
}

// openJobStore picks the backend from the DSN: postgres URLs get the pgx
// pool, anything else is treated as a SQLite path for local development.
func openJobStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.JobRepository, func(context.Context) error, func(), error) {
	dsn := cfg.Database.DSN
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		pool, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := repository.HealthCheck(ctx, pool, logger); err != nil {
			repository.Close(pool, logger)
			return nil, nil, nil, err
		}
		health := func(ctx context.Context) error {
			return repository.HealthCheck(ctx, pool, logger)
		}
		return repository.NewJobRepository(pool, logger), health, func() { repository.Close(pool, logger) }, nil
	}

	db, err := repository.OpenSQLite(dsn, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	health := func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
	closeFn := func() {
		if err := db.Close(); err != nil {
			logger.Error("sqlite close error", "error", err)
		}
	}
	return repository.NewSQLiteJobRepository(db, logger), health, closeFn, nil
}
