package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"telemetry-pipeline/internal/config"
	"telemetry-pipeline/internal/logger"
	"telemetry-pipeline/internal/model"
	"telemetry-pipeline/internal/pipeline"
	"telemetry-pipeline/internal/storage"
	"telemetry-pipeline/internal/store"
)

type options struct {
	configPath string
	input      string
	output     string
	noLedger   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the pipeline command tree
func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Clean one vessel telemetry CSV into daily Parquet partitions",
		Long: `pipeline validates, normalizes and resamples a telemetry CSV file and
writes one Parquet file per entity and calendar day.

Inputs are always read from the local filesystem. Outputs go to the
configured storage backend unless --output is given.`,
		Example: `  # Clean a file with the built-in defaults
  pipeline --input ./raw/vesselA_2024run.csv --output ./out

  # Use a config file and skip the sqlite ledger
  pipeline --config pipeline.yaml --input vesselA_2024run.csv --no-ledger`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVar(&opts.configPath, "config", "", "path to the YAML configuration file")
	rootCmd.Flags().StringVar(&opts.input, "input", "", "telemetry CSV file to clean")
	rootCmd.Flags().StringVar(&opts.output, "output", "", "output directory, forces the local backend")
	rootCmd.Flags().BoolVar(&opts.noLedger, "no-ledger", false, "do not record the run in the sqlite ledger")
	_ = rootCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(newInitConfigCmd())
	return rootCmd
}

// newInitConfigCmd writes the default configuration as a starting point
func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config PATH",
		Short: "Write the default configuration to PATH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().SaveConfig(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "📝 Wrote %s\n", args[0])
			return nil
		},
	}
}

func run(ctx context.Context, opts *options) error {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.output != "" {
		abs, err := filepath.Abs(opts.output)
		if err != nil {
			return err
		}
		// artifacts land directly below the output directory
		cfg.Storage.Backend = config.BackendLocal
		cfg.Storage.LocalRoot = abs
		cfg.Storage.Destination = ""
	}

	log := logger.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	inputPath, err := filepath.Abs(opts.input)
	if err != nil {
		return err
	}
	srcDir := filepath.Dir(inputPath)

	dstOpen, err := storage.NewOpener(cfg.Storage)
	if err != nil {
		return err
	}
	// the input is always a local file; outputs follow the configured backend
	open := func(container string) (storage.ObjectStore, error) {
		if container == srcDir {
			return storage.NewLocalStore(srcDir)
		}
		return dstOpen(container)
	}

	var ledger *store.Store
	if !opts.noLedger && cfg.Ledger.Path != "" {
		ledger, err = store.Open(cfg.Ledger.Path)
		if err != nil {
			return fmt.Errorf("failed to open ledger: %w", err)
		}
		defer ledger.Close()
	}

	fmt.Printf("🚀 Cleaning %s\n", inputPath)
	runner := pipeline.NewRunner(cfg, open, ledger, log)
	result, err := runner.Run(ctx, model.RunSpec{Container: srcDir, Key: filepath.Base(inputPath)})
	if err != nil {
		return err
	}

	if result.Empty {
		fmt.Printf("⚠️ No rows left after cleaning (%d rows removed, %d unparseable timestamps)\n",
			result.TotalRowsRemoved, result.TimestampUnparseable)
		return nil
	}

	fmt.Printf("📊 Rows: %d in, %d cleaned, %d resampled, %d removed\n",
		result.RowsIn, result.RowsCleaned, result.RowsResampled, result.TotalRowsRemoved)
	for name, report := range result.Columns {
		if report.Nulled > 0 || report.Unparseable > 0 {
			fmt.Printf("🔍 %s: %d out of range, %d unparseable\n", name, report.Nulled, report.Unparseable)
		}
	}
	for _, loc := range result.Locations() {
		fmt.Printf("💾 %s\n", loc)
	}
	fmt.Printf("🏁 Done in %v\n", result.Duration)
	return nil
}
