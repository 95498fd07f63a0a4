// cmd/sweeper/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/javajoker/bulkwear-backend/internal/bootstrap"
	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/database"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sweeper",
		Short: "Remove expired reset codes and abandoned unpaid purchases",
	}

	rootCmd.AddCommand(sweepCmd(services.SweepCleanupCodes, "Delete expired and used password reset codes",
		func(ctx context.Context, s *services.SweepService, age time.Duration, dryRun bool) (*services.SweepReport, error) {
			return s.CleanupCodes(ctx, age, dryRun)
		}))
	rootCmd.AddCommand(sweepCmd(services.SweepCleanupUnpaid, "Delete unpaid purchases and their uploaded files",
		func(ctx context.Context, s *services.SweepService, age time.Duration, dryRun bool) (*services.SweepReport, error) {
			return s.CleanupUnpaid(ctx, age, dryRun)
		}))
	rootCmd.AddCommand(scheduleCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type sweepFunc func(ctx context.Context, s *services.SweepService, age time.Duration, dryRun bool) (*services.SweepReport, error)

func sweepCmd(name, short string, run sweepFunc) *cobra.Command {
	var (
		olderThan time.Duration
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sweeper, cleanup, err := newSweepService()
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := run(ctx, sweeper, olderThan, dryRun)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Age cutoff (defaults to the configured retention)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report matches without deleting")

	return cmd
}

func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run both sweeps on their configured intervals until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sweeper, cleanup, err := newSweepService()
			if err != nil {
				return err
			}
			defer cleanup()

			logrus.Info("Sweeper scheduled")
			sweeper.Schedule(ctx)
			return nil
		},
	}
}

func newSweepService() (*services.SweepService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	bootstrap.SetupLogging(cfg)

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	files, err := bootstrap.OpenStorage(cfg)
	if err != nil {
		database.Close(db)
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	store := repository.NewGormStore(db)
	return services.NewSweepService(store, files, cfg.Sweep), func() { database.Close(db) }, nil
}
