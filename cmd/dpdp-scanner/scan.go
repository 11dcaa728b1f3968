package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raaihank/dpdp-scanner/internal/report"
	"github.com/raaihank/dpdp-scanner/internal/scan"
	"github.com/raaihank/dpdp-scanner/internal/source"
)

func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a file, database or S3 bucket",
	}

	scanCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "table", "report format: table, json or yaml")
	scanCmd.PersistentFlags().BoolVar(&failOnFindings, "fail-on-findings", false, "exit with status 2 when personal data is found")

	fileCmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Scan a CSV, SQL or TXT file line by line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := source.NewFile(args[0])
			if err != nil {
				return err
			}
			return runScan(cmd, func(ctx context.Context, a *app) (source.Source, func(), error) {
				return src, func() {}, nil
			})
		},
	}

	var driver string
	dbCmd := &cobra.Command{
		Use:   "db <connection-string>",
		Short: "Sample every table of a live database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := args[0]
			return runScan(cmd, func(ctx context.Context, a *app) (source.Source, func(), error) {
				if driver == "" {
					driver = a.cfg.Database.Driver
				}
				a.log.Info("Connecting to database", zap.String("dsn", source.MaskDSN(dsn)))

				openCtx := ctx
				if a.cfg.Database.ConnectTimeout > 0 {
					var cancel context.CancelFunc
					openCtx, cancel = context.WithTimeout(ctx, a.cfg.Database.ConnectTimeout)
					defer cancel()
				}

				db, err := source.OpenDatabase(openCtx, driver, dsn)
				if err != nil {
					return nil, nil, err
				}
				return db, func() { db.Close() }, nil
			})
		},
	}
	dbCmd.Flags().StringVar(&driver, "driver", "", "database/sql driver name (default from config)")

	var target source.BucketTarget
	s3Cmd := &cobra.Command{
		Use:   "s3",
		Short: "Sample text objects from an S3 bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, func(ctx context.Context, a *app) (source.Source, func(), error) {
				if target.AccessKey == "" {
					target.AccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
				}
				if target.SecretKey == "" {
					target.SecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
				}
				if target.Region == "" {
					target.Region = a.cfg.ObjectStore.DefaultRegion
				}
				if target.Endpoint == "" {
					target.Endpoint = a.cfg.ObjectStore.Endpoint
				}

				bucket, err := source.OpenBucket(ctx, target)
				if err != nil {
					return nil, nil, err
				}
				return bucket, func() {}, nil
			})
		},
	}
	s3Cmd.Flags().StringVar(&target.Bucket, "bucket", "", "bucket name")
	s3Cmd.Flags().StringVar(&target.Region, "region", "", "bucket region (default from config)")
	s3Cmd.Flags().StringVar(&target.AccessKey, "access-key", "", "access key ID (default $AWS_ACCESS_KEY_ID)")
	s3Cmd.Flags().StringVar(&target.SecretKey, "secret-key", "", "secret access key (default $AWS_SECRET_ACCESS_KEY)")
	s3Cmd.Flags().StringVar(&target.Endpoint, "endpoint", "", "S3-compatible endpoint URL")
	s3Cmd.MarkFlagRequired("bucket")

	scanCmd.AddCommand(fileCmd, dbCmd, s3Cmd)
	return scanCmd
}

// opener builds the source for one scan and a cleanup func to run after it
type opener func(ctx context.Context, a *app) (source.Source, func(), error)

func runScan(cmd *cobra.Command, open opener) error {
	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	src, cleanup, err := open(ctx, a)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := a.newEngine().Run(ctx, src)
	if err != nil {
		return err
	}

	if err := report.WriteResult(cmd.OutOrStdout(), result, format); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if failOnFindings && result.ComplianceStatus == scan.StatusNonCompliant {
		return &exitError{code: 2}
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(outputFormat)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if limit <= 0 {
				limit = a.cfg.History.RecentLimit
			}

			records, err := a.store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return report.WriteHistory(cmd.OutOrStdout(), records, format)
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of scans to show (default from config)")
	historyCmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "output format: table, json or yaml")

	return historyCmd
}
