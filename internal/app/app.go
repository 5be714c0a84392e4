package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	"brokerflow/internal/aggregation"
	"brokerflow/internal/cache"
	"brokerflow/internal/config"
	"brokerflow/internal/dates"
	"brokerflow/internal/infrastructure"
	"brokerflow/internal/operations"
	"brokerflow/internal/sectors"
	"brokerflow/internal/storage"
	handlers "brokerflow/internal/transport/http"
	ws "brokerflow/internal/websocket"
)

// Pipeline bundles the aggregation components a run needs, wired from
// configuration. Both the server and the one-shot CLI build one.
type Pipeline struct {
	Store        storage.ObjectStore
	FileCache    *cache.RawFileCache
	Discovery    *dates.Discovery
	Sector       *aggregation.SectorAggregator
	Inventory    *aggregation.InventoryAggregator
	Mapping      *sectors.Mapping
	Orchestrator *operations.Orchestrator
}

// NewPipeline constructs the storage, cache, and aggregation stack
// from configuration. sink and the orchestrator tracer may be nil.
func NewPipeline(cfg *config.Config, sink operations.ProgressSink, providers *infrastructure.OTelProviders, logger *slog.Logger) (*Pipeline, error) {
	fsStore, err := storage.NewFSStore(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}
	var store storage.ObjectStore = fsStore
	if cfg.Storage.RateLimitRPS > 0 {
		store = storage.NewRateLimitedStore(store, cfg.Storage.RateLimitRPS, cfg.Storage.RateLimitBurst)
	}

	mapping, err := sectors.LoadFile(cfg.Storage.SectorMapFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load sector mapping: %w", err)
	}

	fileCache := cache.New(store, cfg.Cache.CapacityBytes, cfg.Cache.TTL)

	discovery := dates.NewDiscovery(store, dates.DiscoveryConfig{
		MaxAttempts: cfg.Storage.RetryAttempts,
		BaseDelay:   cfg.Storage.RetryBaseDelay,
		MaxDelay:    30 * time.Second,
	}, logger)

	sector := aggregation.NewSectorAggregator(store, fileCache, cfg.Pipeline, logger)
	inventory := aggregation.NewInventoryAggregator(store, fileCache, discovery, cfg.Pipeline, logger)

	var tracer trace.Tracer
	if providers != nil {
		tracer = providers.Tracer
	}

	orchestrator := operations.NewOrchestrator(
		store, sector, inventory, discovery, fileCache,
		cfg.Pipeline, sink, tracer, logger)

	return &Pipeline{
		Store:        store,
		FileCache:    fileCache,
		Discovery:    discovery,
		Sector:       sector,
		Inventory:    inventory,
		Mapping:      mapping,
		Orchestrator: orchestrator,
	}, nil
}

// Application is the HTTP server container: configuration, pipeline,
// websocket hub, and the assembled router.
type Application struct {
	Config    *config.Config
	Pipeline  *Pipeline
	Hub       *ws.Hub
	Server    *http.Server
	Logger    *slog.Logger
	Providers *infrastructure.OTelProviders
}

// NewApplication loads configuration and wires every component.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	providers, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	hub := ws.NewHub(logger)

	sink := operations.MultiSink{
		operations.SlogSink{Logger: logger},
		hub,
	}

	pipeline, err := NewPipeline(cfg, sink, providers, logger)
	if err != nil {
		return nil, err
	}

	runs := handlers.NewRunsHandler(pipeline.Orchestrator, pipeline.Mapping, cfg.Server.RunTimeout, logger)
	router := handlers.NewRouter(runs, hub)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Application{
		Config:    cfg,
		Pipeline:  pipeline,
		Hub:       hub,
		Server:    server,
		Logger:    logger,
		Providers: providers,
	}, nil
}

// Run starts the hub and HTTP server and blocks until SIGINT/SIGTERM,
// then shuts both down within the configured timeout.
func (a *Application) Run() error {
	a.Hub.Start()
	defer a.Hub.Stop()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		a.Logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if a.Providers != nil {
		if err := a.Providers.Shutdown(ctx); err != nil {
			a.Logger.Warn("telemetry shutdown", slog.String("error", err.Error()))
		}
	}
	infrastructure.CloseLogFile()
	return nil
}
