package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "drivepower/console/libs/redis"

	"drivepower/console/internal/auth"
	"drivepower/console/internal/clients"
	"drivepower/console/internal/config"
	httpserver "drivepower/console/internal/http"
	"drivepower/console/internal/http/handlers"
	"drivepower/console/internal/http/middleware"
	"drivepower/console/internal/models"
	"drivepower/console/internal/resource"
	"drivepower/console/internal/session"
	"drivepower/console/internal/storage"
)

// App wires admin console dependencies.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	redis   *goredis.Client
	kv      storage.KV
	store   *session.Store
	api     *clients.APIClient
	authAPI *clients.AuthClient
	manager *auth.Manager
}

// New constructs the application graph and loads the persisted session.
// A session that cannot be loaded leaves the manager logged out instead of
// failing, so login and logout stay usable.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	kv, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	base := clients.NewBaseClient(cfg.API.BaseURL, clients.NewDefaultHTTPClient(cfg.HTTPTimeout()))
	a.kv = kv
	a.store = session.NewStore(kv, logger.Named("session"))
	a.api = clients.NewAPIClient(base)
	a.authAPI = clients.NewAuthClient(base)
	a.manager = auth.NewManager(a.store, a.authAPI, nil, logger.Named("auth"))

	if err := a.manager.Init(ctx); err != nil {
		logger.Warn("starting without a stored session", zap.Error(err))
	}
	return a, nil
}

func (a *App) openStorage(ctx context.Context) (storage.KV, error) {
	switch a.cfg.Session.Backend {
	case config.BackendRedis:
		client, err := libredis.NewRedisClient(ctx, libredis.Options{
			Addr:     a.cfg.Session.Redis.Addr,
			Password: a.cfg.Session.Redis.Password,
			DB:       a.cfg.Session.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("app: connect redis: %w", err)
		}
		a.redis = client
		return storage.NewRedisKV(client, a.cfg.Session.Redis.Prefix), nil
	case config.BackendMemory:
		return storage.NewMemoryKV(), nil
	default:
		return storage.NewFileKV(a.cfg.Session.File)
	}
}

// Manager returns the auth session manager.
func (a *App) Manager() *auth.Manager {
	return a.manager
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Stations returns the stations loader.
func (a *App) Stations() *resource.Resource[[]models.Station] {
	return resource.NewStations(a.store, a.api, a.logger.Named("stations"))
}

// Transactions returns a transactions loader; limit <= 0 uses the configured one.
func (a *App) Transactions(limit int) *resource.Resource[[]models.Transaction] {
	if limit <= 0 {
		limit = a.cfg.Transactions.Limit
	}
	return resource.NewTransactions(limit, a.store, a.api, a.logger.Named("transactions"))
}

// TransactionStats returns the stats loader.
func (a *App) TransactionStats() *resource.Resource[*models.TransactionStats] {
	return resource.NewTransactionStats(a.store, a.api, a.logger.Named("stats"))
}

// Serve runs the web console until ctx is cancelled. Every browser gets its
// own session, persisted next to the CLI one under a per-browser namespace.
func (a *App) Serve(ctx context.Context) error {
	sessions := handlers.NewSessions(a.kv, a.newConsole, handlers.SessionsOptions{
		SecureCookie: a.cfg.Console.SecureCookie,
	}, a.logger.Named("web"))

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandlers:      handlers.NewAuthHandlers(sessions, a.logger),
		DashboardHandlers: handlers.NewDashboardHandlers(sessions, a.cfg.RefreshLeeway(), a.logger),
		HealthHandler:     handlers.NewHealthHandler(),
	})

	server := httpserver.NewServer(
		a.cfg.HTTPAddress(),
		router,
		a.logger,
		middleware.RecoveryMiddleware(a.logger),
		middleware.RequestIDMiddleware(),
		middleware.LoggingMiddleware(a.logger),
	)
	return server.Run(ctx)
}

// newConsole builds the manager and loaders of one browser session.
func (a *App) newConsole(kv storage.KV) (*auth.Manager, handlers.Resources) {
	store := session.NewStore(kv, a.logger.Named("session"))
	manager := auth.NewManager(store, a.authAPI, nil, a.logger.Named("auth"))
	return manager, handlers.Resources{
		Stations:     resource.NewStations(store, a.api, a.logger.Named("stations")),
		Transactions: resource.NewTransactions(a.cfg.Transactions.Limit, store, a.api, a.logger.Named("transactions")),
		Stats:        resource.NewTransactionStats(store, a.api, a.logger.Named("stats")),
	}
}

// Close releases resources.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
