// Package server wires the auth core, the user management API and the
// integration status endpoint into one fiber application.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"

	auth "github.com/hireloop/portal-auth"
	"github.com/hireloop/portal-auth/activitymap"
	"github.com/hireloop/portal-auth/integration"
	"github.com/hireloop/portal-auth/internal/config"
	"github.com/hireloop/portal-auth/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// App holds the wired services
type App struct {
	Fiber *fiber.App

	cfg         config.Config
	db          *bun.DB
	logger      *slog.Logger
	repo        auth.RepositoryManager
	tokens      *auth.TokenServiceImpl
	auther      *auth.Auther
	limiter     *auth.LoginLimiter
	revocations auth.RevocationStore
	registry    *prometheus.Registry
	collector   *metrics.Collector
	connections integration.Store
}

// Option configures App
type Option func(*App)

// WithLogger sets the process logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRedis keeps revoked tokens in redis so every instance sees them
func WithRedis(client redis.Cmdable, prefix string) Option {
	return func(a *App) {
		if client != nil {
			a.revocations = auth.NewRedisRevocationStore(client, prefix)
		}
	}
}

// WithRegistry sets the prometheus registry
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		if reg != nil {
			a.registry = reg
		}
	}
}

// New wires the application on top of db
func New(cfg config.Config, db *bun.DB, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if a.revocations == nil {
		a.revocations = auth.NewMemoryRevocationStore()
	}

	a.repo = auth.NewRepositoryManager(db)
	if err := a.repo.Validate(); err != nil {
		return nil, err
	}

	a.collector = metrics.NewCollector(a.registry)
	a.connections = integration.NewStore(db)

	activity := a.activitySink()

	a.tokens = auth.NewTokenService(cfg.Auth,
		auth.WithRevocationStore(a.revocations),
		auth.WithTokenLogger(a.logger.With("component", "tokens")),
	)

	a.limiter = auth.NewLoginLimiter(auth.LoginLimiterConfig{
		Rate:  rate.Limit(float64(cfg.Limiter.PerMinute) / 60.0),
		Burst: cfg.Limiter.Burst,
	})

	provider := auth.NewUserProvider(a.repo.Users()).
		WithLogger(a.logger.With("component", "identity"))

	a.auther = auth.NewAuthenticator(provider, a.tokens).
		WithLogger(a.logger.With("component", "auth")).
		WithActivitySink(activity).
		WithLoginLimiter(a.limiter)

	users := auth.NewUserService(a.repo,
		auth.WithUserServiceActivitySink(activity),
		auth.WithUserServiceLogger(a.logger.With("component", "users")),
	)

	a.Fiber = fiber.New(fiber.Config{
		AppName:               "portal-auth",
		DisableStartupMessage: true,
		ErrorHandler:          auth.NewErrorHandler(a.logger.With("component", "http")),
	})

	a.Fiber.Use(recover.New())
	a.Fiber.Use(a.collector.Middleware())

	a.Fiber.Get("/healthz", a.health)
	a.Fiber.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(a.registry)))

	// logout only needs a token it can revoke; every other route reloads
	// the user so disabled or demoted accounts lose access right away
	session := auth.Protect(cfg.Auth, a.tokens)
	protect := auth.Protect(cfg.Auth, a.tokens, auth.WithActorRefresher(a.auther.RefreshActor))

	auth.NewAuthController(a.auther, cfg.Auth,
		auth.WithAuthControllerLogger(a.logger.With("component", "auth_controller")),
		auth.WithAuthControllerDebug(cfg.IsDevelopment()),
	).Register(a.Fiber, session)

	usersController := auth.NewUsersController(users, a.logger.With("component", "users_controller"))
	usersController.Activity = activity
	usersController.Register(a.Fiber, protect)

	integration.NewHandler(a.connections, a.logger.With("component", "integrations")).
		Register(a.Fiber, protect)

	return a, nil
}

func (a *App) activitySink() auth.ActivitySink {
	sinks := auth.MultiActivitySink{
		a.collector,
		activitymap.NewSink(auditWriter(a.logger)),
	}

	if mem, ok := a.revocations.(*auth.MemoryRevocationStore); ok {
		sinks = append(sinks, auth.ActivitySinkFunc(func(_ context.Context, e auth.ActivityEvent) error {
			if e.EventType == auth.ActivityEventLogout {
				a.collector.SetRevoked(mem.Len())
			}
			return nil
		}))
	}

	return sinks
}

func (a *App) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := a.db.PingContext(ctx); err != nil {
		a.logger.Error("health check failed", "error", err)
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// Repository exposes the repositories for seeding and tests
func (a *App) Repository() auth.RepositoryManager {
	return a.repo
}

// Connections exposes the integration store
func (a *App) Connections() integration.Store {
	return a.connections
}

// Tokens exposes the token service
func (a *App) Tokens() auth.TokenService {
	return a.tokens
}

// Listen serves on addr until ctx is done, then drains connections
func (a *App) Listen(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.limiter.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", addr)
		errCh <- a.Fiber.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	if err := a.Fiber.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return err
	}
	return <-errCh
}
