package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/getpup/pupsourcing-savedobjects/internal/config"
	"github.com/getpup/pupsourcing-savedobjects/store/sqlstore"
	"github.com/getpup/pupsourcing/es"
)

// waitForDatabase opens the configured database and pings it with
// exponential backoff until it answers or the wait timeout elapses.
func waitForDatabase(ctx context.Context, cfg config.Database, logger es.Logger) (*sql.DB, sqlstore.Dialect, error) {
	dialect, err := sqlstore.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, "", err
	}

	db, err := backoff.Retry(ctx, func() (*sql.DB, error) {
		db, err := sqlstore.Open(dialect, cfg.DSN)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(cfg.WaitTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Info(ctx, "database not ready", "dialect", dialect, "retryIn", next, "error", err)
		}),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}
	return db, dialect, nil
}
