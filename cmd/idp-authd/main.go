// Command idp-authd is a small API host that authenticates Firebase and
// Google ID tokens and reports who the caller is.
//
//	FIREBASE_PROJECT_ID=my-project idp-authd
//	curl -H "Authorization: Bearer $ID_TOKEN" localhost:8080/v1/me
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	idpmiddleware "github.com/kitchenhub/go-idp-middleware"
	"github.com/kitchenhub/go-idp-middleware/config"
	"github.com/kitchenhub/go-idp-middleware/core"
	"github.com/kitchenhub/go-idp-middleware/keystore"
	"github.com/kitchenhub/go-idp-middleware/validator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "idp-authd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	zapLogger, err := newZapLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, appDeps{
		logger:   idpmiddleware.NewZapLogger(zapLogger),
		registry: prometheus.DefaultRegisterer,
		gatherer: prometheus.DefaultGatherer,
		tracer:   idpmiddleware.NewOpenTelemetryTracer(otel.Tracer("github.com/kitchenhub/go-idp-middleware")),
	})
	if err != nil {
		return err
	}

	// A failed warm-up is not fatal: requests refresh synchronously.
	if err := a.refresher.Start(ctx); err != nil {
		zapLogger.Warn("initial signing key refresh failed", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.refresher.Stop(stopCtx)
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("idp-authd listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newZapLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

type appDeps struct {
	logger   core.Logger
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
	tracer   core.Tracer
	// endpoints overrides the well-known certificate URLs per provider.
	endpoints map[core.ProviderKind]string
}

type app struct {
	store     *keystore.Store
	refresher *keystore.Refresher
	validator *validator.Validator
	router    http.Handler
}

func newApp(cfg *config.Config, deps appDeps) (*app, error) {
	trust, err := cfg.TrustBoundary()
	if err != nil {
		return nil, err
	}
	metrics := idpmiddleware.NewPrometheusMetrics(deps.registry,
		idpmiddleware.WithMetricsLogger(deps.logger))

	storeOpts := []keystore.Option{
		keystore.WithFetchTimeout(cfg.FetchTimeout),
		keystore.WithLogger(deps.logger),
		keystore.WithMetrics(metrics),
		keystore.WithTracer(deps.tracer),
	}
	for _, kind := range trust.Providers {
		fetcher, err := newFetcher(kind, deps)
		if err != nil {
			return nil, err
		}
		if fetcher == nil {
			deps.logger.Warn("provider has no key fetcher; its tokens will be rejected", "provider", kind.String())
			continue
		}
		storeOpts = append(storeOpts, keystore.WithProvider(kind, fetcher))
	}
	store, err := keystore.New(storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("create key store: %w", err)
	}

	refresher, err := keystore.NewRefresher(store, keystore.WithSchedule(cfg.RefreshSchedule))
	if err != nil {
		return nil, fmt.Errorf("create refresher: %w", err)
	}

	v, err := validator.New(
		validator.WithKeyStore(store),
		validator.WithIssuers(trust.Issuers...),
		validator.WithAudiences(trust.Audiences...),
		validator.WithAllowedClockSkew(cfg.ClockSkew),
		validator.WithLogger(deps.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}

	mw, err := idpmiddleware.New(
		idpmiddleware.WithValidator(v),
		idpmiddleware.WithLogger(deps.logger),
		idpmiddleware.WithMetrics(metrics),
		idpmiddleware.WithTracer(deps.tracer),
	)
	if err != nil {
		return nil, fmt.Errorf("create middleware: %w", err)
	}

	return &app{
		store:     store,
		refresher: refresher,
		validator: v,
		router:    newRouter(mw, store, deps.gatherer),
	}, nil
}

// newFetcher returns nil for providers without a key endpoint.
func newFetcher(kind core.ProviderKind, deps appDeps) (keystore.Fetcher, error) {
	opts := []keystore.FetcherOption{keystore.WithFetcherLogger(deps.logger)}
	if endpoint, ok := deps.endpoints[kind]; ok {
		opts = append(opts, keystore.WithEndpoint(endpoint))
	}

	switch kind {
	case core.Google:
		return keystore.NewGoogleFetcher(opts...)
	case core.Firebase:
		return keystore.NewFirebaseFetcher(opts...)
	default:
		return nil, nil
	}
}
