package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

const dialAttempts = 5

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanups always run.
func run() int {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker, os.Getenv("LOG_LEVEL"))
	logger.Info("Starting fintrack-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		return 1
	}
	logger.Info("Worker stopped gracefully")
	return 0
}

// serve runs the startup sweep, the cron sweep and, when configured, the
// AMQP consumer until ctx ends. Every resource it opens is closed before it
// returns.
func serve(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open repository %s: %w", cfg.SQLiteDBPath, err)
	}
	defer repo.Close()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend configuration: %w", err)
	}
	exporter, err := backend.NewExporter(ctx, bcfg)
	if err != nil {
		return err
	}

	w := worker.NewExportWorker(repo, exporter, cfg.ExportBatchSize)

	if n, err := w.StartupSweep(ctx); err != nil {
		logger.Error("Startup sweep failed", applog.FieldError, err, "exported", n)
	}

	c := cron.New()
	if _, err := w.Schedule(ctx, c, cfg.ExportSchedule); err != nil {
		return err
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		client, err := amqp.Dial(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, dialAttempts)
		if err != nil {
			logger.Error("Failed to connect to AMQP, relying on scheduled sweeps", applog.FieldError, err)
		} else {
			defer client.Close()
			g.Go(func() error {
				return consume(gctx, client, w, logger)
			})
		}
	} else {
		logger.Info("AMQP disabled, relying on scheduled sweeps", "schedule", cfg.ExportSchedule)
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// consume keeps the consumer running across broker restarts until ctx ends.
func consume(ctx context.Context, client *amqp.Client, w *worker.ExportWorker, logger *applog.Logger) error {
	for {
		err := client.ConsumeTransactionRecorded(ctx, w.HandleTransactionRecorded)
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("Consumer stopped, restarting", applog.FieldError, err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
		}
	}
}
