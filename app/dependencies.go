package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jfi/employee-api/auth"
	"github.com/jfi/employee-api/config"
	"github.com/jfi/employee-api/handlers"
	"github.com/jfi/employee-api/internal/correlation"
	"github.com/jfi/employee-api/internal/intercept"
	"github.com/jfi/employee-api/internal/observability"
	"github.com/jfi/employee-api/middleware"
	"github.com/jfi/employee-api/models"
	"github.com/jfi/employee-api/repositories"
	"github.com/jfi/employee-api/repositories/memory"
	"github.com/jfi/employee-api/repositories/postgres"
	"github.com/jfi/employee-api/services/employee"
	"github.com/jfi/employee-api/services/ratelimit"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger
	DB     *postgres.DB // nil unless the postgres driver is selected

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Observability
	Registry    *correlation.Registry
	Metrics     *observability.PrometheusMetrics // nil when metrics are disabled
	Interceptor *intercept.Interceptor

	// Repositories and services
	Repositories *repositories.Repositories
	Employees    employee.Service
	RateLimiter  *ratelimit.RateLimitService

	// HTTP components
	AccessLogger    *middleware.AccessLogger
	RateLimit       *middleware.RateLimitMiddleware
	AuthMiddleware  *middleware.AuthMiddleware // nil when auth is disabled
	EmployeeHandler *handlers.EmployeeHandler
	HealthHandler   *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: correlation.NewRegistry(),
	}

	deps.initObservability()

	if err := deps.initRepositories(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := deps.initAuth(); err != nil {
		deps.closeStorage()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	deps.initRateLimit(ctx)
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully",
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("auth_enabled", deps.AuthMiddleware != nil),
		zap.Bool("rate_limit_enabled", deps.RateLimiter.Enabled()),
		zap.Bool("metrics_enabled", deps.Metrics != nil),
	)
	return deps, nil
}

func (d *Dependencies) initObservability() {
	var metrics observability.Metrics = observability.NopMetrics{}
	if d.Config.Observability.MetricsEnabled {
		d.Metrics = observability.NewPrometheusMetrics(d.Registry.InFlight)
		metrics = d.Metrics
	}
	d.AccessLogger = middleware.NewAccessLogger(d.Registry, d.Logger, metrics)
	d.Interceptor = intercept.New(observability.NewContextLogger(d.Logger))
}

// initRepositories selects the storage driver and decorates the result with
// interception
func (d *Dependencies) initRepositories(ctx context.Context) error {
	var repos *repositories.Repositories

	switch d.Config.Storage.Driver {
	case config.DriverPostgres:
		factory, err := postgres.NewRepositoryFactory(ctx, d.Config.Database, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		d.DB = factory.GetDB()
		repos = factory.NewRepositories()

	case config.DriverMemory:
		var seed []*models.Employee
		if d.Config.Storage.Seed {
			seed = memory.SeedEmployees()
		}
		repos = &repositories.Repositories{
			Employees: memory.NewEmployeeRepository(seed...),
			TxManager: memory.NewTransactionManager(),
		}

	default:
		return fmt.Errorf("unknown storage driver %q", d.Config.Storage.Driver)
	}

	d.Repositories = repositories.Intercepted(repos, d.Interceptor)
	d.Employees = employee.NewInterceptedService(
		employee.NewService(d.Repositories, d.Logger),
		d.Interceptor,
	)

	d.Logger.Info("repositories initialized", zap.String("storage", d.Config.Storage.Driver))
	return nil
}

func (d *Dependencies) initAuth() error {
	if !d.Config.AuthEnabled() {
		d.Logger.Warn("no token validator configured, write routes are unauthenticated")
		return nil
	}

	cfg := d.Config.Auth
	var validator middleware.TokenValidator
	if cfg.JWKSURL != "" {
		v, err := auth.NewJWKSValidator(auth.JWKSConfig{
			URL:      cfg.JWKSURL,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   cfg.Leeway,
			CacheTTL: cfg.JWKSCacheTTL,
		})
		if err != nil {
			return err
		}
		validator = v
		d.Logger.Info("bearer tokens validated against JWKS", zap.String("url", cfg.JWKSURL))
	} else {
		v, err := auth.NewValidator(auth.Config{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   cfg.Leeway,
		})
		if err != nil {
			return err
		}
		validator = v
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	return nil
}

func (d *Dependencies) initRateLimit(ctx context.Context) {
	d.RateLimiter = ratelimit.NewRateLimitService(
		d.Config.RateLimit.RequestsPerSecond,
		d.Config.RateLimit.Burst,
		d.Logger,
	)
	d.RateLimiter.StartJanitor(ctx, d.Config.RateLimit.CleanupInterval)
	d.RateLimit = middleware.NewRateLimitMiddleware(d.RateLimiter, d.Logger)
}

func (d *Dependencies) initHandlers() {
	d.EmployeeHandler = handlers.NewEmployeeHandler(d.Employees, d.Interceptor, d.Logger)

	var checker handlers.HealthChecker
	if d.DB != nil {
		checker = d.DB
	}
	d.HealthHandler = handlers.NewHealthHandler(checker, d.Config.Storage.Driver, d.Logger)
}

func (d *Dependencies) closeStorage() error {
	if d.RepoFactory == nil {
		return nil
	}
	return d.RepoFactory.Close()
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if err := d.closeStorage(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}

	if n := d.Registry.InFlight(); n > 0 {
		d.Logger.Warn("requests still in flight at shutdown", zap.Int("count", n))
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
