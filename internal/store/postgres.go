// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

// Package store manages the PostgreSQL connection pool and schema
// migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

const (
	connectInitialBackoff = 500 * time.Millisecond
	connectMaxElapsed     = 30 * time.Second
)

// Connect opens a pgx connection pool and verifies it with a ping.
// The ping is retried with exponential backoff so the service survives a
// database that comes up slightly after it does, as is common under
// docker-compose and fresh deploys.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return ConnectWithLogger(ctx, dsn, slog.New(slog.DiscardHandler))
}

// ConnectWithLogger is Connect with retry attempts logged.
func ConnectWithLogger(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, oops.Code("STORE_INVALID_DSN").Errorf("database dsn cannot be empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("operation", "create connection pool").
			Wrap(err)
	}

	backoff := retry.WithMaxDuration(connectMaxElapsed,
		retry.NewExponential(connectInitialBackoff))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if perr := pool.Ping(ctx); perr != nil {
			logger.WarnContext(ctx, "database not ready, retrying", "error", perr)
			return retry.RetryableError(perr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("STORE_PING_FAILED").
			With("operation", "ping database").
			Wrap(err)
	}

	return pool, nil
}
