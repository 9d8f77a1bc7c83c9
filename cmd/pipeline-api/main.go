package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"telemetry-pipeline/internal/api"
	"telemetry-pipeline/internal/api/handler"
	"telemetry-pipeline/internal/config"
	"telemetry-pipeline/internal/logger"
	"telemetry-pipeline/internal/pipeline"
	"telemetry-pipeline/internal/storage"
	"telemetry-pipeline/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			logger.NewLogger("error").Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	log := logger.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	// Init DB
	ledger, err := store.Open(cfg.Ledger.Path)
	if err != nil {
		log.Error("failed to open ledger", "path", cfg.Ledger.Path, "error", err)
		os.Exit(1)
	}
	defer ledger.Close()

	open, err := storage.NewOpener(cfg.Storage)
	if err != nil {
		log.Error("failed to configure storage", "error", err)
		os.Exit(1)
	}

	runner := pipeline.NewRunner(cfg, open, ledger, log)
	h := handler.New(runner, ledger, cfg.Server.RunTimeoutDuration(), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server
	r := api.NewServer(h)
	if err := r.Start(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "error", err)
	}

	log.Info("waiting for running jobs")
	h.Wait()
}
