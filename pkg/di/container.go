package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"faqdesk/backend/internal/repository"
	"faqdesk/backend/internal/service"
	"faqdesk/backend/internal/ws"
	"faqdesk/backend/pkg/cache"
	"faqdesk/backend/pkg/config"
	"faqdesk/backend/pkg/health"
	"faqdesk/backend/pkg/jwt"
	"faqdesk/backend/pkg/logger"
	"faqdesk/backend/pkg/observability"
	"faqdesk/backend/pkg/secrets"

	"go.opentelemetry.io/otel/metric/noop"
)

// Container holds all the dependencies for the application
type Container struct {
	Config          *config.Config
	Logger          *logger.Logger
	Store           repository.Store
	JWTService      *jwt.Service
	Cache           cache.Cache
	Metrics         *observability.Metrics
	MetricsHandler  http.Handler
	Health          *health.Checker
	UserService     *service.UserService
	FAQService      *service.FAQService
	HelpdeskService *service.HelpdeskService
	Hub             *ws.Hub

	closers []func(context.Context) error
}

// New builds the container from configuration, opening the configured store.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	c, err := NewWithStore(ctx, cfg, store, log)
	if err != nil {
		closeStore(ctx)
		return nil, err
	}
	c.closers = append(c.closers, closeStore)
	return c, nil
}

// NewWithStore builds the container over an already opened store.
func NewWithStore(ctx context.Context, cfg *config.Config, store repository.Store, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log, Store: store}

	secretKey, err := jwtSecret(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	c.JWTService = jwt.NewService(secretKey, cfg.JWT.Expiry)

	if err := c.setupObservability(ctx); err != nil {
		return nil, err
	}

	c.Cache = cache.New(cfg, log)
	if c.Cache != nil {
		c.closers = append(c.closers, func(context.Context) error { return c.Cache.Close() })
	}

	c.UserService = service.NewUserService(store, c.JWTService, log)
	c.FAQService = service.NewFAQService(store, service.FAQOptions{
		Logger:  log,
		Metrics: c.Metrics,
	})
	c.HelpdeskService = service.NewHelpdeskService(store, service.HelpdeskOptions{
		EscalationMessage: cfg.EscalationMessage(),
		Logger:            log,
		Metrics:           c.Metrics,
	})

	c.Hub = ws.NewHub(c.HelpdeskService, log)
	c.HelpdeskService.SetNotifier(c.Hub)

	c.Health = health.NewChecker(log, 0)
	c.Health.RegisterPingCheck("database", true, store.Ping)
	if pinger, ok := c.Cache.(interface{ Ping(context.Context) error }); ok {
		c.Health.RegisterPingCheck("cache", false, pinger.Ping)
	}

	return c, nil
}

func (c *Container) setupObservability(ctx context.Context) error {
	obs := c.Config.Observability

	if obs.TracingEnabled {
		shutdown, err := observability.SetupTracing(ctx, obs.ServiceName)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, shutdown)
	}

	if !obs.MetricsEnabled {
		metrics, err := observability.NewMetrics(noop.NewMeterProvider().Meter(obs.ServiceName))
		if err != nil {
			return fmt.Errorf("create metrics: %w", err)
		}
		c.Metrics = metrics
		return nil
	}

	provider, handler, err := observability.SetupPrometheusMetrics()
	if err != nil {
		return err
	}
	metrics, err := observability.NewMetrics(provider.Meter(obs.ServiceName))
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}
	c.Metrics = metrics
	c.MetricsHandler = handler
	c.closers = append(c.closers, provider.Shutdown)
	return nil
}

// Close releases everything the container opened, newest first.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func openStore(cfg *config.Config, log *logger.Logger) (repository.Store, func(context.Context) error, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("Using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), func(context.Context) error { return nil }, nil
	}

	db, err := config.OpenDB(cfg.Database, cfg.IsDevelopment())
	if err != nil {
		return nil, nil, err
	}
	store := repository.NewGormStore(db)
	if cfg.Database.Migrate {
		if err := store.AutoMigrate(); err != nil {
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info("Database schema migrated")
	}

	closeDB := func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return store, closeDB, nil
}

// jwtSecret prefers the Vault secret "jwt-secret" over JWT_SECRET.
func jwtSecret(ctx context.Context, cfg *config.Config, log *logger.Logger) (string, error) {
	manager, err := secrets.NewVaultManager(cfg.Vault, log)
	if err != nil {
		return "", fmt.Errorf("create secret manager: %w", err)
	}
	secret := manager.GetSecretWithDefault(ctx, "jwt-secret", cfg.JWT.Secret)
	if secret == "" && !cfg.IsDevelopment() {
		return "", errors.New("JWT secret is not configured")
	}
	return secret, nil
}
