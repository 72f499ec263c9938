package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getpup/pupsourcing-savedobjects/metrics"
	"github.com/getpup/pupsourcing-savedobjects/pkg/migrator"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var serve bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply the pending migrations",
		Long: `Apply every migration newer than the store marker, in ascending id order.

The command exits non-zero when the run halted. The marker then holds the
id of the last migration that completed and the application must not start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var srv *metrics.Server
			if cfg.Metrics.Addr != "" {
				srv = metrics.NewServer(cfg.Metrics.Addr)
				srv.Start()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			db, dialect, err := waitForDatabase(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if cfg.Database.Initialize {
				if err := migrator.CreateTableWithName(ctx, db, dialect, cfg.Database.Table); err != nil {
					return err
				}
			}

			m, err := migrator.New(
				migrator.WithDatabase(db, dialect),
				migrator.WithTableName(cfg.Database.Table),
				migrator.WithBatchSize(cfg.Migration.BatchSize),
				migrator.WithSentinelID(cfg.Migration.SentinelID),
				migrator.WithIndexName(cfg.Migration.Index),
				migrator.WithLogger(logger),
				migrator.WithMetricsEnabled(srv != nil),
			)
			if err != nil {
				return err
			}

			report, err := m.Run(ctx)
			printReport(cmd.OutOrStdout(), report)
			if err != nil {
				return fmt.Errorf("migration halted: %w", err)
			}

			if srv == nil || !serve {
				return nil
			}
			srv.SetReady(true)
			logger.Info(ctx, "serving metrics until interrupted", "addr", cfg.Metrics.Addr)
			<-ctx.Done()
			return srv.Err()
		},
	}

	cmd.Flags().BoolVar(&serve, "serve", false, "keep serving /metrics and /ready after a successful run")
	return cmd
}
