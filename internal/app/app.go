package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"cardpulse/internal/aggregator"
	"cardpulse/internal/config"
	"cardpulse/internal/infrastructure"
	"cardpulse/internal/optimizer"
	transport "cardpulse/internal/transport/http"
)

// Application is the web service container: configuration, the snapshot
// store, the suggestion engine and the HTTP server wired together.
type Application struct {
	Config        *config.Config
	Router        chi.Router
	Server        *http.Server
	Store         *aggregator.Store
	Engine        *optimizer.Engine
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
}

// NewApplication creates the application with dependency injection.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", cfg.Server.Port))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	store := aggregator.NewStore(cfg.Paths.SnapshotFile)
	engine := optimizer.NewEngine(cfg.Optimizer.MaxTableCells,
		optimizer.TieBreakByName(cfg.Optimizer.TieBreak), logger)

	router, metrics, err := transport.NewRouter(transport.RouterDeps{
		Config:    cfg,
		Logger:    logger,
		Providers: otelProviders,
		Store:     store,
		Engine:    engine,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Router:        router,
		Store:         store,
		Engine:        engine,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// Start begins serving. The server runs in its own goroutine; a listen
// failure cancels the supplied context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "http server listening",
		slog.String("addr", a.Server.Addr),
		slog.String("snapshot", a.Store.Path()))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop gracefully shuts the server and telemetry down.
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Logger.InfoContext(shutdownCtx, "shutting down")

	var firstErr error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		firstErr = fmt.Errorf("server shutdown: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("otel shutdown: %w", err)
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close log file: %w", err)
	}

	return firstErr
}

// Run starts the application and blocks until an interrupt signal or a
// fatal server error, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
