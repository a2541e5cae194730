// Package main is the entry point for the trackflow API. It wires all
// dependencies using samber/do v2, starts the HTTP server, and handles
// graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	"github.com/jsamuelsen11/trackflow/internal/adapters/audit"
	"github.com/jsamuelsen11/trackflow/internal/adapters/clients/acl"
	adapthttp "github.com/jsamuelsen11/trackflow/internal/adapters/http"
	"github.com/jsamuelsen11/trackflow/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/trackflow/internal/adapters/http/middleware"
	lognotify "github.com/jsamuelsen11/trackflow/internal/adapters/notify"
	"github.com/jsamuelsen11/trackflow/internal/adapters/storage/memory"
	"github.com/jsamuelsen11/trackflow/internal/adapters/storage/sqlstore"
	"github.com/jsamuelsen11/trackflow/internal/app"
	"github.com/jsamuelsen11/trackflow/internal/app/notify"
	"github.com/jsamuelsen11/trackflow/internal/platform/clock"
	"github.com/jsamuelsen11/trackflow/internal/platform/config"
	"github.com/jsamuelsen11/trackflow/internal/platform/health"
	"github.com/jsamuelsen11/trackflow/internal/platform/httpclient"
	"github.com/jsamuelsen11/trackflow/internal/platform/logging"
	"github.com/jsamuelsen11/trackflow/internal/platform/telemetry"
	"github.com/jsamuelsen11/trackflow/internal/ports"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	serverShutdownTimeout = 15 * time.Second
	otelShutdownTimeout   = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	profile := os.Getenv("APP_PROFILE")
	if profile == "" {
		return errors.New("APP_PROFILE environment variable is required (e.g. local, dev, qa, prod)")
	}

	// Bootstrap: config, logger, telemetry.
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx := context.Background()
	otel, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	// DI container.
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.ProvideValue(injector, otel.metrics)

	registerDependencies(ctx, injector, cfg, logger)

	// Resolve the server (eagerly wires the full graph).
	server, err := do.Invoke[*adapthttp.Server](injector)
	if err != nil {
		_ = otel.Shutdown(ctx)
		return fmt.Errorf("resolving server: %w", err)
	}

	// Register health checkers after the graph is wired.
	registry := do.MustInvoke[ports.HealthRegistry](injector)
	store := do.MustInvoke[ports.Store](injector)
	registry.Register(store)
	if checker, ok := do.MustInvoke[ports.AuditSink](injector).(ports.HealthChecker); ok {
		registry.Register(checker)
	}
	if webhook, err := do.Invoke[*acl.WebhookNotifier](injector); err == nil && webhook != nil {
		registry.Register(webhook)
	}

	// Start server in background.
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for shutdown signal or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	// Graceful shutdown: drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// Wait for Start() goroutine to return.
	<-serverErr

	// Drain queued notifications, then release the store.
	if d := do.MustInvoke[*notify.Dispatcher](injector); d != nil {
		if err := d.Close(shutdownCtx); err != nil {
			logger.Error("notification drain error", slog.Any("error", err))
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("store close error", slog.Any("error", err))
	}

	// Flush telemetry.
	otelCtx, otelCancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
	defer otelCancel()

	if err := otel.Shutdown(otelCtx); err != nil {
		logger.Error("telemetry shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}

// otelProviders bundles OpenTelemetry provider lifecycle. All fields are nil
// when telemetry is disabled.
type otelProviders struct {
	tracer  *sdktrace.TracerProvider
	meter   *sdkmetric.MeterProvider
	metrics *telemetry.Metrics
}

// Shutdown flushes both providers. Nil-safe.
func (o *otelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tracer != nil {
		if err := o.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if o.meter != nil {
		if err := o.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

func initTelemetry(ctx context.Context, cfg *config.Config) (*otelProviders, error) {
	if !cfg.Telemetry.Enabled {
		return &otelProviders{}, nil
	}

	tp, err := telemetry.InitTracer(ctx,
		cfg.Telemetry.ServiceName,
		cfg.Telemetry.Exporter,
		cfg.Telemetry.Endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	mp, err := telemetry.InitMeter(ctx,
		cfg.Telemetry.ServiceName,
		cfg.Telemetry.Exporter,
		cfg.Telemetry.Endpoint,
	)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("init meter: %w", err)
	}

	metrics, err := telemetry.NewMetrics(mp, cfg.Telemetry.ServiceName)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	return &otelProviders{
		tracer:  tp,
		meter:   mp,
		metrics: metrics,
	}, nil
}

func registerDependencies(ctx context.Context, injector *do.RootScope, cfg *config.Config, logger *slog.Logger) {
	do.Provide(injector, func(_ do.Injector) (ports.Store, error) {
		return openStore(ctx, cfg.Store, logger)
	})

	do.Provide(injector, func(i do.Injector) (ports.AuditSink, error) {
		switch cfg.Audit.Sink {
		case config.AuditSinkMemory:
			return audit.NewMemorySink(), nil
		case config.AuditSinkHTTP:
			metrics := do.MustInvoke[*telemetry.Metrics](i)
			client := httpclient.New(&cfg.Client, cfg.Audit.BaseURL, "audit-service", metrics, logger)
			return acl.NewAuditSink(client, cfg.Audit.Path, logger), nil
		default:
			return audit.NewLogSink(logger), nil
		}
	})

	// Nil when notify.sink is not webhook.
	do.Provide(injector, func(i do.Injector) (*acl.WebhookNotifier, error) {
		if cfg.Notify.Sink != config.NotifySinkWebhook {
			return nil, nil
		}
		metrics := do.MustInvoke[*telemetry.Metrics](i)
		client := httpclient.New(&cfg.Client, cfg.Notify.BaseURL, "notification-service", metrics, logger)
		return acl.NewWebhookNotifier(client, cfg.Notify.Path, logger), nil
	})

	// Nil when notifications are disabled.
	do.Provide(injector, func(i do.Injector) (*notify.Dispatcher, error) {
		var sink ports.Notifier
		switch cfg.Notify.Sink {
		case config.NotifySinkNone:
			return nil, nil
		case config.NotifySinkWebhook:
			sink = do.MustInvoke[*acl.WebhookNotifier](i)
		default:
			sink = lognotify.NewLogNotifier(logger)
		}
		metrics := do.MustInvoke[*telemetry.Metrics](i)
		return notify.NewDispatcher(sink, cfg.Notify.QueueSize, cfg.Notify.Workers, metrics, logger), nil
	})

	do.Provide(injector, func(i do.Injector) (*app.Services, error) {
		deps := app.Deps{
			Store:    do.MustInvoke[ports.Store](i),
			Audit:    do.MustInvoke[ports.AuditSink](i),
			Clock:    clock.Real(),
			Metrics:  do.MustInvoke[*telemetry.Metrics](i),
			Logger:   logger,
			Workflow: cfg.Workflow,
		}
		if d := do.MustInvoke[*notify.Dispatcher](i); d != nil {
			deps.Notifier = d
		}
		return app.New(deps), nil
	})

	do.Provide(injector, func(_ do.Injector) (ports.HealthRegistry, error) {
		return health.New(), nil
	})

	do.Provide(injector, func(i do.Injector) (adapthttp.Handlers, error) {
		svc := do.MustInvoke[*app.Services](i)
		registry := do.MustInvoke[ports.HealthRegistry](i)
		return adapthttp.Handlers{
			Projects:  handlers.NewProjectHandler(svc.Projects),
			WorkItems: handlers.NewWorkItemHandler(svc.WorkItems),
			Boards:    handlers.NewBoardHandler(svc.Boards),
			Sprints:   handlers.NewSprintHandler(svc.Sprints),
			Bugs:      handlers.NewBugHandler(svc.Bugs),
			Health:    handlers.NewHealthHandler(registry),
		}, nil
	})

	do.Provide(injector, func(i do.Injector) (nethttp.Handler, error) {
		h := do.MustInvoke[adapthttp.Handlers](i)
		metrics := do.MustInvoke[*telemetry.Metrics](i)

		stack := middleware.Chain(
			middleware.Recovery(logger),
			middleware.RequestID(),
			middleware.Actor(),
			middleware.OpenTelemetry(metrics),
			middleware.Logging(logger),
			middleware.Timeout(cfg.Server.RequestTimeout),
		)
		return adapthttp.NewRouter(h, stack), nil
	})

	do.Provide(injector, func(i do.Injector) (*adapthttp.Server, error) {
		handler := do.MustInvoke[nethttp.Handler](i)
		return adapthttp.NewServer(cfg.Server, handler, logger), nil
	})
}

// openStore returns the document store selected by cfg.Driver.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (ports.Store, error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil
	}
	store, err := sqlstore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Driver, err)
	}
	logger.Info("store opened", slog.String("driver", cfg.Driver))
	return store, nil
}
