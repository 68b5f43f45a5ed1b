package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commerceops/backend/internal/domain/integration"
	"github.com/commerceops/backend/internal/infrastructure/cache"
	"github.com/commerceops/backend/internal/infrastructure/config"
	"github.com/commerceops/backend/internal/infrastructure/logger"
	"github.com/commerceops/backend/internal/infrastructure/marketplace"
	"github.com/commerceops/backend/internal/infrastructure/marketplace/modules"
	"github.com/commerceops/backend/internal/infrastructure/telemetry"
	"github.com/commerceops/backend/internal/interfaces/http/handler"
	"github.com/commerceops/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting CommerceOps Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Initialize telemetry
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	attemptRecorder, err := telemetry.NewAttemptRecorder(meterProvider.Meter("marketplace"))
	if err != nil {
		log.Fatal("Failed to create attempt recorder", zap.Error(err))
	}

	// Load the module catalog; integrity faults abort startup
	catalog, err := marketplace.NewCatalog()
	if err != nil {
		log.Fatal("Failed to load module catalog", zap.Error(err))
	}
	log.Info("Module catalog loaded", zap.Int("modules", len(catalog.IDs())))

	// Quota store: Redis when several instances share one provider account,
	// in-process memory otherwise
	var quotaStore integration.QuotaStore
	if cfg.Marketplace.SharedQuota {
		redisStore, err := cache.NewRedisQuotaStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis quota store", zap.Error(err))
		}
		defer func() {
			if err := redisStore.Close(); err != nil {
				log.Error("Error closing Redis quota store", zap.Error(err))
			}
		}()
		quotaStore = redisStore
		log.Info("Shared quota store connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		quotaStore = cache.NewInMemoryQuotaStore()
	}

	// Wire the dispatcher
	dispatcher := marketplace.NewDispatcher(
		marketplace.DispatcherConfig{
			Endpoint:         cfg.Marketplace.Endpoint,
			AdmissionTimeout: cfg.Marketplace.AdmissionTimeout,
			Retry: marketplace.RetryPolicy{
				MaxAttempts: cfg.Marketplace.MaxAttempts,
				BaseBackoff: cfg.Marketplace.BaseBackoff,
				Multiplier:  cfg.Marketplace.BackoffMultiplier,
				MaxBackoff:  cfg.Marketplace.MaxBackoff,
			},
		},
		catalog,
		marketplace.NewHTTPTransport(cfg.Marketplace.RequestTimeout),
		marketplace.NewBearerCredentialProvider(cfg.Marketplace.AuthToken),
		marketplace.WithLogger(log.Named("dispatcher")),
		marketplace.WithTelemetry(attemptRecorder),
		marketplace.WithSharedQuotaStore(quotaStore),
	)

	// Build and register the module façades. Registration order matters:
	// tokens must precede the modules that depend on it.
	registry := marketplace.NewRegistry(catalog, log.Named("registry"))
	deps := modules.ModuleDeps{
		Dispatcher: dispatcher,
		Catalog:    catalog,
		MaxPages:   cfg.Marketplace.MaxPages,
	}
	if err := registerModules(registry, deps); err != nil {
		log.Fatal("Failed to register marketplace modules", zap.Error(err))
	}
	log.Info("Marketplace modules registered", zap.Strings("modules", registry.List()))

	// HTTP ops surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.GinMiddleware(log.Named("http")), logger.Recovery(log))
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	router.NewRouter(engine).
		Register(handler.NewSystemHandler(cfg.App.Name)).
		Register(handler.NewMarketplaceHandler(catalog, registry, dispatcher)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}

// registerModules builds every module façade on its catalog default version
// and registers it. Order respects catalog dependencies.
func registerModules(registry *marketplace.Registry, deps modules.ModuleDeps) error {
	factories := []func() (integration.Module, error){
		func() (integration.Module, error) { return modules.NewSellersModule(deps, "") },
		func() (integration.Module, error) { return modules.NewTokensModule(deps, "") },
		func() (integration.Module, error) { return modules.NewOrdersModule(deps, "") },
		func() (integration.Module, error) { return modules.NewInventoryModule(deps, "") },
		func() (integration.Module, error) { return modules.NewReportsModule(deps, "") },
		func() (integration.Module, error) { return modules.NewNotificationsModule(deps, "") },
	}

	for _, factory := range factories {
		m, err := factory()
		if err != nil {
			return err
		}
		if err := registry.Register(m); err != nil {
			return err
		}
	}
	return nil
}
