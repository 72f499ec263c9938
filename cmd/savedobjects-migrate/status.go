package main

import (
	"github.com/getpup/pupsourcing-savedobjects/pkg/migrator"
	"github.com/spf13/cobra"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the store marker and the pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			db, dialect, err := waitForDatabase(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			m, err := migrator.New(
				migrator.WithDatabase(db, dialect),
				migrator.WithTableName(cfg.Database.Table),
				migrator.WithSentinelID(cfg.Migration.SentinelID),
				migrator.WithMetricsEnabled(false),
			)
			if err != nil {
				return err
			}

			plan, err := m.Pending(ctx)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}
}
