package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/authgateway/internal/adapter/driven/password"
	"github.com/ericfisherdev/authgateway/internal/adapter/driven/storage"
	httphandler "github.com/ericfisherdev/authgateway/internal/adapter/driving/http"
	"github.com/ericfisherdev/authgateway/internal/application"
	"github.com/ericfisherdev/authgateway/internal/config"
	"github.com/ericfisherdev/authgateway/internal/telemetry"
)

const serviceName = "authgateway"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := telemetry.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"route_prefix", cfg.RoutePrefix,
		"storage_url", cfg.StorageURL,
		"storage_name", cfg.StorageName,
		"password_scheme", cfg.PasswordScheme,
		"token_ttl", cfg.TokenTTL,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Tracing before any instrumented component grabs a tracer.
	shutdownTracing, err := telemetry.SetupTracing(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	var metrics *telemetry.Metrics
	if cfg.MetricsEnabled {
		metrics, err = telemetry.NewMetrics(serviceName)
		if err != nil {
			return err
		}
		defer func() {
			if err := metrics.Shutdown(context.Background()); err != nil {
				slog.Error("metrics shutdown error", "error", err)
			}
		}()
	}

	// 4. Wire adapters.
	store := storage.NewClient(cfg.StorageURL, cfg.StorageName, storage.Options{
		Timeout:   cfg.StorageTimeout,
		HTTPCache: cfg.StorageHTTPCache,
	})

	legacy, err := password.NewCipher(cfg.SecretKey)
	if err != nil {
		return err
	}
	hasher, err := password.NewScheme(cfg.PasswordScheme, password.NewArgon2Hasher(password.DefaultArgon2Params()), legacy)
	if err != nil {
		return err
	}

	// 5. Create services.
	credentialSvc := application.NewCredentialService(store, hasher, logger)
	tokenSvc := application.NewTokenService(cfg.SecretKey, cfg.TokenTTL)

	// 6. Create HTTP handler.
	handler := httphandler.NewServeMux(
		httphandler.NewHandler(credentialSvc, tokenSvc, logger),
		httphandler.MuxOptions{Prefix: cfg.RoutePrefix, Metrics: metrics},
		logger,
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 7. Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		return err
	}

	// 8. Graceful shutdown with 10s timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
