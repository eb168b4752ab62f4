/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the roastery back-office server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), apply flag overrides
  2. Build the logger
  3. Open the database (SQLite or MySQL) and migrate
  4. Pick the lock backend (Redis when REDIS_ADDR is set, else in-process)
  5. Create the first superuser if configured
  6. Start the dashboard snapshot scheduler
  7. Serve HTTP with graceful shutdown

COMMAND-LINE FLAGS:
  -env     .env file to load (default: .env, missing is fine)
  -port    HTTP server port (overrides APP_PORT)
  -db      Database DSN (overrides DB_DSN)
           Use ":memory:" for an in-memory SQLite database
  -seed    Load a demo scenario into an empty database and keep serving

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, waiting for a running snapshot
  4. Close lock and database connections

EXAMPLES:
  ./server -db=":memory:" -seed=first-harvest
  DB_DRIVER=mysql DB_DSN="user:pw@tcp(localhost:3306)/roastery" ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/roastsync/roastery/api"
	"github.com/roastsync/roastery/auth"
	"github.com/roastsync/roastery/config"
	"github.com/roastsync/roastery/lock"
	"github.com/roastsync/roastery/logger"
	"github.com/roastsync/roastery/roastery"
	"github.com/roastsync/roastery/scheduler"
	"github.com/roastsync/roastery/store/sqlstore"
)

func main() {
	// Flags
	envFile := flag.String("env", "", "Optional .env file")
	port := flag.String("port", "", "HTTP server port (overrides APP_PORT)")
	dsn := flag.String("db", "", "Database DSN (overrides DB_DSN)")
	seed := flag.String("seed", "", "Demo scenario to load into an empty database")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Must(logger.New(cfg.LogLevel))
	defer log.Sync()

	if err := run(cfg, *seed, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, seed string, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize store
	store, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN, logger.Named(log, "store"))
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	locker, closeLocker, err := newLocker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authSvc := auth.NewService(store, issuer, logger.Named(log, "auth"))
	if cfg.Auth.FirstSuperuserEmail != "" {
		created, err := authSvc.EnsureSuperuser(ctx, cfg.Auth.FirstSuperuserEmail, cfg.Auth.FirstSuperuserPassword)
		if err != nil {
			return fmt.Errorf("create first superuser: %w", err)
		}
		if created {
			log.Info("first superuser created", zap.String("email", cfg.Auth.FirstSuperuserEmail))
		}
	}

	sales := roastery.NewSaleService(store, locker, cfg.CurrencyDecimals, logger.Named(log, "sales"))

	sched := scheduler.New(scheduler.Options{
		Spec:     cfg.Scheduler.SnapshotCron,
		Location: cfg.Location(),
	}, roastery.NewDashboard(store, cfg.CurrencyDecimals), store, locker, logger.Named(log, "scheduler"))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	handler := api.NewHandler(api.Deps{
		Store:     store,
		Auth:      authSvc,
		Sales:     sales,
		Snapshots: sched,
		Places:    cfg.CurrencyDecimals,
		Logger:    logger.Named(log, "api"),
	})

	if seed != "" {
		if err := handler.LoadDemo(ctx, seed); err != nil {
			return fmt.Errorf("seed %s: %w", seed, err)
		}
	}

	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger.Named(log, "http"),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("driver", cfg.Database.Driver),
			zap.Time("next_snapshot", sched.Next()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// newLocker uses Redis when configured so several instances share locks.
func newLocker(ctx context.Context, cfg *config.Config, log *zap.Logger) (roastery.Locker, func(), error) {
	if cfg.Redis.Addr == "" {
		log.Info("using in-process locks")
		return lock.NewLocal(), func() {}, nil
	}

	r, err := lock.NewRedis(ctx, lock.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger.Named(log, "lock"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Info("using redis locks", zap.String("addr", cfg.Redis.Addr))
	return r, func() {
		if err := r.Close(); err != nil {
			log.Warn("closing redis", zap.Error(err))
		}
	}, nil
}
