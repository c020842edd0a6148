// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/squarecheck/squarecheck/internal/auth"
	authpg "github.com/squarecheck/squarecheck/internal/auth/postgres"
	authredis "github.com/squarecheck/squarecheck/internal/auth/redis"
	"github.com/squarecheck/squarecheck/internal/config"
	"github.com/squarecheck/squarecheck/internal/logging"
	"github.com/squarecheck/squarecheck/internal/observability"
	"github.com/squarecheck/squarecheck/internal/store"
	"github.com/squarecheck/squarecheck/internal/web"
	"github.com/squarecheck/squarecheck/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// newServeCmd creates the serve subcommand with all flags configured.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication API server",
		Long: `Start the HTTP server exposing login, registration, logout and
current-user endpoints, plus the metrics/health endpoint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

// runServe wires the service together and blocks until shutdown.
func runServe(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault("squarecheck", version, cfg.LogFormat)
	logger := slog.Default()

	logger.Info("starting auth service",
		"http_addr", cfg.HTTPAddr,
		"metrics_addr", cfg.MetricsAddr,
		"session_store", cfg.SessionStore,
		"log_format", cfg.LogFormat,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := store.ConnectWithLogger(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	logger.Info("connected to database")

	users := authpg.NewUserRepository(pool)

	var sessions auth.SessionRepository
	switch cfg.SessionStore {
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer func() {
			if cerr := client.Close(); cerr != nil {
				logger.Warn("error closing redis client", "error", cerr)
			}
		}()
		sessions, err = authredis.NewSessionRepository(client)
		if err != nil {
			return fmt.Errorf("failed to create redis session store: %w", err)
		}
		logger.Info("using redis session store", "redis_addr", cfg.RedisAddr)
	default:
		sessions = authpg.NewSessionRepository(pool)
	}

	hasher := auth.NewArgon2idHasher()
	verifier, err := auth.NewCredentialVerifier(users, hasher)
	if err != nil {
		return fmt.Errorf("failed to create credential verifier: %w", err)
	}

	cookies := auth.CookieConfig{
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
	}
	manager, err := auth.NewSessionManagerWithLogger(sessions, users, cookies, logger)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	service, err := auth.NewServiceWithLogger(verifier, manager, users, hasher, logger)
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	// Observability server (optional)
	var metrics *observability.Metrics
	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(ctx, time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		metrics = obsServer.Metrics()

		obsErrCh, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go func() {
			if obsErr := <-obsErrCh; obsErr != nil {
				logger.Error("observability server error", "error", obsErr)
				cancel()
			}
		}()
	}

	webServer, err := web.NewServerWithLogger(cfg.HTTPAddr, service, metrics, logger)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	webErrCh, err := webServer.Start()
	if err != nil {
		return fmt.Errorf("failed to start web server: %w", err)
	}
	go func() {
		if webErr := <-webErrCh; webErr != nil {
			logger.Error("web server error", "error", webErr)
			cancel()
		}
	}()

	// Background sweep of expired sessions
	if cfg.PurgeInterval > 0 {
		go runPurgeLoop(ctx, manager, metrics, cfg.PurgeInterval, logger)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping web server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// runPurgeLoop deletes expired sessions on a fixed interval until the
// context is cancelled.
func runPurgeLoop(ctx context.Context, manager *auth.SessionManager, metrics *observability.Metrics, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := manager.PurgeExpired(ctx)
			if err != nil {
				errutil.LogError(logger, "expired session sweep failed", err)
				continue
			}
			if metrics != nil {
				metrics.SessionsPurgedTotal.Add(float64(n))
			}
			if n > 0 {
				logger.Info("purged expired sessions", "count", n)
			}
		}
	}
}
