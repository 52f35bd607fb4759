package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"preisradar/internal/apis/ebay/usecases"
	"preisradar/internal/bootstrap"
	"preisradar/internal/catalog"
	"preisradar/internal/config"
	"preisradar/internal/logger"
	"preisradar/internal/scheduler"
)

func main() {
	var (
		configPath = flag.String("config", "./config/config.yaml", "path to config.yaml")
		spec       = flag.String("spec", "", "override cron spec (optional)")
		runNow     = flag.Bool("now", false, "run once right after start")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config failed", "err", err)
		os.Exit(1)
	}
	if *spec != "" {
		cfg.Scheduler.Spec = *spec
	}
	if *runNow {
		cfg.Scheduler.RunOnStart = true
	}

	log := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
		Env:       cfg.Env,
	})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher, closer, err := bootstrap.BuildFetcher(ctx, cfg, log)
	if err != nil {
		log.Error("build fetcher failed", "err", err)
		os.Exit(1)
	}
	defer closer.Close()

	sched, err := scheduler.New(fetchJob(cfg, fetcher, log), scheduler.Options{
		Spec:       cfg.Scheduler.Spec,
		RunOnStart: cfg.Scheduler.RunOnStart,
		Logger:     log,
	})
	if err != nil {
		log.Error("build scheduler failed", "err", err)
		closer.Close()
		os.Exit(1)
	}
	if err := sched.Start(ctx); err != nil {
		log.Error("start scheduler failed", "err", err)
		closer.Close()
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info("shutdown signal received")
	sched.Stop()
}

// fetchJob reloads the catalog on every run.
func fetchJob(cfg *config.Config, fetcher *usecases.ProductOffersService, base *slog.Logger) scheduler.Job {
	return func(ctx context.Context) error {
		log, runID := logger.WithRun(base)

		products, err := catalog.Load(cfg.Data.ContentDir, log)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		sum, err := fetcher.WithLogger(log).Run(ctx, products)
		if err != nil {
			return fmt.Errorf("run %s: %w", runID, err)
		}
		log.Info("run summary", "skipped", sum.Skipped, "kept", sum.Kept, "failed", sum.Failed)
		return nil
	}
}
