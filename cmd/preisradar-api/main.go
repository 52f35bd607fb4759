package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"preisradar/internal/bootstrap"
	"preisradar/internal/catalog"
	"preisradar/internal/config"
	httpserver "preisradar/internal/http-server"
	"preisradar/internal/logger"
	jsonfile "preisradar/internal/repository/json"
)

func main() {
	var (
		configPath = flag.String("config", "./config/config.yaml", "path to config.yaml")
		host       = flag.String("host", "", "override host")
		port       = flag.Int("port", 0, "override port")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
		Env:       cfg.Env,
	})
	slog.SetDefault(log)

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	products, err := catalog.Load(cfg.Data.ContentDir, log)
	if err != nil {
		log.Error("load catalog failed", "err", err, "dir", cfg.Data.ContentDir)
		os.Exit(1)
	}

	hist, closeHist, err := bootstrap.BuildHistoryStore(context.Background(), cfg, log)
	if err != nil {
		log.Error("build history store failed", "err", err)
		os.Exit(1)
	}
	defer closeHist.Close()

	api := httpserver.New(log)

	api.RegisterRoutes(httpserver.Deps{
		Catalog:     products,
		Snapshots:   jsonfile.NewSnapshots(cfg.Data.OffersDir, log),
		History:     hist,
		Labels:      jsonfile.NewLabels(cfg.Data.LabelsDir, log),
		ShortWindow: cfg.History.ShortWindowDays,
		Timeout:     time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
	})

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("api started", "addr", addr, "products", len(products))
	if err := serve(ctx, srv, log); err != nil {
		log.Error("server stopped with error", "err", err)
		closeHist.Close()
		os.Exit(1)
	}
}

// serve runs srv until ctx ends, then drains in-flight requests for up to 10s.
func serve(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped gracefully")
	return nil
}
