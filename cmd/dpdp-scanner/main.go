package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/raaihank/dpdp-scanner/internal/config"
	"github.com/raaihank/dpdp-scanner/internal/detect"
	"github.com/raaihank/dpdp-scanner/internal/history"
	"github.com/raaihank/dpdp-scanner/internal/logger"
	"github.com/raaihank/dpdp-scanner/internal/scan"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

var (
	configPath     string
	outputFormat   string
	failOnFindings bool
)

// exitError carries a process exit code out of a command
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "dpdp-scanner",
		Short: "Find Indian personal data in files, databases and S3 buckets",
		Long: `dpdp-scanner audits data stores for Aadhaar numbers, PAN numbers and
Indian mobile numbers, the personal data regulated by the DPDP Act 2023.

Every finding is reported with its location and a masked value; raw values
never leave the scanner.

Examples:
  dpdp-scanner scan file users.csv
  dpdp-scanner scan db postgres://auditor@db/app --format json
  dpdp-scanner scan s3 --bucket exports --region ap-south-1
  dpdp-scanner serve --config configs/config.yaml`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")

	rootCmd.AddCommand(newServeCmd(), newScanCmd(), newHistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if exitErr.msg != "" {
				fmt.Fprintln(os.Stderr, exitErr.msg)
			}
			os.Exit(exitErr.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the components every command shares
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   history.Store
	scanner *detect.Scanner
}

// newApp loads configuration, the logger, the detector set and the history
// store
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	registry, err := detect.DefaultRegistry().Select(cfg.Detection.Detectors)
	if err != nil {
		return nil, fmt.Errorf("invalid detection config: %w", err)
	}

	store, err := history.Open(ctx, cfg.History, log.WithComponent("history"))
	if err != nil {
		return nil, fmt.Errorf("failed to open scan history: %w", err)
	}

	log.Debug("Scanner initialized",
		zap.String("version", version),
		zap.Int("detectors", registry.Len()),
		zap.String("history_backend", cfg.History.Backend),
	)

	return &app{cfg: cfg, log: log, store: store, scanner: detect.NewScanner(registry)}, nil
}

// newEngine creates a scan engine that records into the history store
func (a *app) newEngine(opts ...scan.Option) *scan.Engine {
	opts = append([]scan.Option{
		scan.WithRecorder(a.store),
		scan.WithTracer(otel.Tracer(a.cfg.Tracing.ServiceName)),
	}, opts...)

	return scan.NewEngine(a.scanner, a.log.WithComponent("scan"), opts...)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("Failed to close scan history", zap.Error(err))
	}
	a.log.Sync()
}
