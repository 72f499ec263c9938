// Command savedobjects-migrate upgrades the saved objects of a SQL store to
// the current schema before the application starts serving requests.
//
// Usage:
//
//	savedobjects-migrate run --dialect postgres --dsn postgres://localhost/kibi
//	savedobjects-migrate status --dialect sqlite3 --dsn file:kibi.db
//
// Every flag can also be set with a SAVEDOBJECTS_* environment variable
// (SAVEDOBJECTS_DATABASE_DSN, SAVEDOBJECTS_MIGRATION_BATCH_SIZE, ...) or in
// the file passed with --config.
package main

import (
	"fmt"
	"os"

	"github.com/getpup/pupsourcing-savedobjects/internal/config"
	"github.com/getpup/pupsourcing-savedobjects/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configFile string
}

// load resolves the configuration and builds the logger for cmd.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Configuration, *logging.Logger, error) {
	cfg, err := config.Load(viper.New(), cmd.Flags(), o.configFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "savedobjects-migrate",
		Short: "Migrate saved objects to the current schema",
		Long: `savedobjects-migrate applies the pending saved-object migrations to a
SQL document store and advances the version marker held by the
configuration document.`,
		SilenceUsage: true,
	}

	defaults, err := config.New()
	if err != nil {
		panic(err)
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "configuration file (yaml, json or toml)")
	config.RegisterFlags(rootCmd.PersistentFlags(), defaults)

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
