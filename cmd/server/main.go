package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/x6galixia/server/pkg/api"
	"github.com/x6galixia/server/pkg/auth"
	"github.com/x6galixia/server/pkg/config"
	"github.com/x6galixia/server/pkg/observability"
	"github.com/x6galixia/server/pkg/session"
	"github.com/x6galixia/server/pkg/users"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	// Credential store
	db, err := users.Connect(cfg.Storage)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.PostgresTimeout)
	err = users.RunMigrations(ctx, db)
	cancel()
	if err != nil {
		db.Close()
		return err
	}
	logger.Info("credential store ready")

	// Session store
	redisClient, err := session.NewRedisClient(cfg.Storage)
	if err != nil {
		db.Close()
		return err
	}
	logger.Info("session store ready")

	// Core wiring
	userStore := users.NewStore(db)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	verifier := auth.NewVerifier(userStore, hasher)
	registrar := auth.NewRegistrar(userStore, hasher, cfg.Auth.MinPasswordLength)
	sessionStore := session.NewStore(redisClient, cfg.Auth.SessionTTL)
	sessions := session.NewManager(sessionStore, userStore, session.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
	})

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	apiServer := &http.Server{
		Addr: net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler: api.NewServer(api.Deps{
			Registrar: registrar,
			Verifier:  verifier,
			Sessions:  sessions,
			Logger:    logger,
			Metrics:   metrics,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux(db, redisClient, metrics),
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(context.Context) error { return redisClient.Close() })
	shutdown.RegisterShutdownFunc(func(context.Context) error { return db.Close() })

	signalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(signalCtx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return shutdown.Shutdown()
	})

	return g.Wait()
}

// healthMux serves the probes and metrics on the separate health port
func healthMux(db *sql.DB, redisClient *redis.Client, metrics *observability.Metrics) http.Handler {
	checker := observability.NewHealthChecker(db, redisClient)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.Liveness)
	mux.HandleFunc("/ready", checker.Readiness)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	return mux
}
