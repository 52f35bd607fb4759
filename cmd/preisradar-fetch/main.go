package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"preisradar/internal/bootstrap"
	"preisradar/internal/catalog"
	"preisradar/internal/config"
	"preisradar/internal/domain/models"
	"preisradar/internal/logger"
)

func main() {
	var (
		configPath = flag.String("config", "./config/config.yaml", "path to config.yaml")
		only       = flag.String("product", "", "comma separated slugs to fetch (optional)")
		contentDir = flag.String("content", "", "override content dir (optional)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config failed", "err", err)
		os.Exit(1)
	}
	if *contentDir != "" {
		cfg.Data.ContentDir = *contentDir
	}

	log := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
		Env:       cfg.Env,
	})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, log, *only)
	stop()
	os.Exit(code)
}

// run performs one fetch and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger, only string) int {
	if !cfg.Secrets.HasCredentials() {
		log.Info("no marketplace credentials configured, fetch skipped")
		return 0
	}

	log, runID := logger.WithRun(log)

	products, err := catalog.Load(cfg.Data.ContentDir, log)
	if err != nil {
		log.Error("load catalog failed", "err", err, "dir", cfg.Data.ContentDir)
		return 1
	}
	products = selectProducts(products, only)
	if len(products) == 0 {
		log.Warn("no products to fetch", "dir", cfg.Data.ContentDir, "filter", only)
		return 0
	}

	fetcher, closer, err := bootstrap.BuildFetcher(ctx, cfg, log)
	if err != nil {
		log.Error("build fetcher failed", "err", err)
		return 1
	}
	defer closer.Close()

	sum, err := fetcher.Run(ctx, products)
	if err != nil {
		log.Error("fetch run failed", "err", err)
		return 1
	}

	log.Info("done",
		"run_id", runID,
		"skipped", sum.Skipped,
		"products", len(sum.Products),
		"kept", sum.Kept,
		"failed", sum.Failed,
	)
	return 0
}

func selectProducts(all []models.Product, only string) []models.Product {
	if strings.TrimSpace(only) == "" {
		return all
	}
	want := map[string]bool{}
	for _, s := range strings.Split(only, ",") {
		if s = strings.TrimSpace(s); s != "" {
			want[s] = true
		}
	}
	out := make([]models.Product, 0, len(want))
	for _, p := range all {
		if want[p.Slug] {
			out = append(out, p)
		}
	}
	return out
}
