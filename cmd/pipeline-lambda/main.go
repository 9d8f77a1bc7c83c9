package main

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"telemetry-pipeline/internal/config"
	"telemetry-pipeline/internal/logger"
	lambdahandler "telemetry-pipeline/internal/lambda"
	"telemetry-pipeline/internal/pipeline"
	"telemetry-pipeline/internal/storage"
)

func main() {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendS3
	cfg.Storage.S3.Region = os.Getenv("AWS_REGION")

	if path := os.Getenv("PIPELINE_CONFIG"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			logger.NewLogger("error").Error("failed to load config", "path", path, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log := logger.New(os.Stdout, cfg.Logging.Level, "json")

	open, err := storage.NewOpener(cfg.Storage)
	if err != nil {
		log.Error("failed to configure storage", "error", err)
		os.Exit(1)
	}

	// runs are recorded in logs and metrics only; the function filesystem is ephemeral
	runner := pipeline.NewRunner(cfg, open, nil, log)
	lambda.Start(lambdahandler.NewHandler(runner, log).Handle)
}
