package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/switchboard/internal/config"
	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/history"
	"github.com/davidbz/switchboard/internal/history/gormstore"
	"github.com/davidbz/switchboard/internal/history/postgres"
	"github.com/davidbz/switchboard/internal/http"
	"github.com/davidbz/switchboard/internal/http/middleware"
	"github.com/davidbz/switchboard/internal/metrics"
	metricsredis "github.com/davidbz/switchboard/internal/metrics/redis"
	"github.com/davidbz/switchboard/internal/observability"
	"github.com/davidbz/switchboard/internal/provider/echo"
	"github.com/davidbz/switchboard/internal/provider/openai"
	"github.com/davidbz/switchboard/internal/provider/registry"
	"github.com/davidbz/switchboard/internal/routing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *http.Server, store history.Store) error {
		return run(server, store)
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func run(server *http.Server, store history.Store) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if closer, ok := store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close history store: %w", err)
		}
	}

	return nil
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(observability.NewMetrics); err != nil {
		log.Fatalf("Failed to provide metrics: %v", err)
	}
	if err := container.Provide(func(logger *zap.Logger) domain.EventPublisher {
		return observability.NewEventBus(logger)
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Pricing
	if err := container.Provide(func() domain.PricingRegistry {
		return domain.NewInMemoryPricingRegistry()
	}); err != nil {
		log.Fatalf("Failed to provide pricing registry: %v", err)
	}
	if err := container.Provide(func(pricing domain.PricingRegistry) domain.CostCalculator {
		return domain.NewStandardCostCalculator(pricing)
	}); err != nil {
		log.Fatalf("Failed to provide cost calculator: %v", err)
	}

	// Live metrics
	if err := container.Provide(provideMetricsStore); err != nil {
		log.Fatalf("Failed to provide metrics store: %v", err)
	}

	// Provider Registry
	if err := container.Provide(registry.NewRegistry); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}
	if err := container.Provide(func(reg *registry.Registry) domain.ProviderRegistry {
		return reg
	}); err != nil {
		log.Fatalf("Failed to provide registry interface: %v", err)
	}

	// Execution history
	if err := container.Provide(provideHistoryStore); err != nil {
		log.Fatalf("Failed to provide history store: %v", err)
	}
	if err := container.Provide(func(
		store history.Store,
		reg *registry.Registry,
		cfg *config.HistoryConfig,
	) *history.Repository {
		return history.NewRepository(store, reg, history.WithWindowDays(cfg.WindowDays))
	}); err != nil {
		log.Fatalf("Failed to provide history repository: %v", err)
	}

	// Routing
	if err := container.Provide(func(
		reg domain.ProviderRegistry,
		store domain.MetricsStore,
		events domain.EventPublisher,
		cfg *config.RoutingConfig,
	) *routing.Selector {
		return routing.NewSelector(reg, store, events, cfg.Selector())
	}); err != nil {
		log.Fatalf("Failed to provide selector: %v", err)
	}
	if err := container.Provide(func(
		selector *routing.Selector,
		store domain.MetricsStore,
		repository *history.Repository,
		prom *observability.Metrics,
		events domain.EventPublisher,
		cfg *config.RoutingConfig,
	) *routing.Router {
		return routing.NewRouter(selector, store, repository, prom, events, cfg.Router())
	}); err != nil {
		log.Fatalf("Failed to provide router: %v", err)
	}

	// Register providers with registry (invoked for side effects)
	if err := container.Invoke(registerProviders); err != nil {
		log.Fatalf("Failed to register providers: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

// provideMetricsStore returns the shared Redis store when enabled, the in-process store otherwise.
func provideMetricsStore(cfg *config.RedisConfig) (domain.MetricsStore, error) {
	if !cfg.Enabled {
		return metrics.NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	observability.FromContext(ctx).Info("redis metrics store connected",
		observability.String("addr", cfg.Addr))

	store, err := metricsredis.NewStore(client, cfg.KeyPrefix)
	if err != nil {
		return nil, err
	}

	return store, nil
}

func provideHistoryStore(cfg *config.HistoryConfig) (history.Store, error) {
	ctx := context.Background()

	switch cfg.Driver {
	case config.HistoryDriverSQLite:
		store, err := gormstore.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.HistoryDriverPostgres:
		store, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.HistoryDriverMemory:
		return history.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}

// registerProviders takes the logger so it is initialized before the first provider logs.
func registerProviders(
	_ *zap.Logger,
	reg domain.ProviderRegistry,
	pricing domain.PricingRegistry,
	calculator domain.CostCalculator,
	echoCfg *echo.Config,
	openaiCfg *openai.Config,
) error {
	ctx := context.Background()
	logger := observability.FromContext(ctx)
	registered := 0

	if echoCfg.Enabled {
		if err := echo.RegisterPricing(ctx, pricing); err != nil {
			return err
		}
		if err := reg.Register(ctx, echo.NewProvider(*echoCfg, calculator)); err != nil {
			return fmt.Errorf("failed to register echo provider: %w", err)
		}
		registered++
	}

	if openaiCfg.APIKey != "" {
		if err := openai.RegisterPricing(ctx, pricing); err != nil {
			return err
		}

		provider, err := openai.NewProvider(*openaiCfg, calculator)
		if err != nil {
			return fmt.Errorf("failed to create OpenAI provider: %w", err)
		}
		if err := reg.Register(ctx, provider); err != nil {
			return fmt.Errorf("failed to register OpenAI provider: %w", err)
		}
		registered++
	} else {
		logger.Info("OpenAI provider not configured, skipping")
	}

	if registered == 0 {
		return errors.New("no providers enabled")
	}

	return nil
}
