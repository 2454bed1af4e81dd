// Package server wires the auth service together: configuration, user store,
// session store, HTTP API and gRPC health endpoint, with graceful shutdown on
// SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/rest"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/session"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    repomanager.RepositoryManager
	sessions session.Store
	redis    *redis.Client
	handlers *rest.Handlers
}

// NewApp validates c, opens the stores and builds the handlers.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.NewJSON(os.Stdout, level)

	store, err := repomanager.Open(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := store.RunMigrations(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	app := &App{config: c, logger: logger, store: store}

	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		rs := session.NewRedisStore(app.redis, "gophauth:session")
		if err := rs.Ping(ctx); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		app.sessions = rs
	} else {
		app.sessions = session.NewMemoryStore()
	}

	signer := auth.NewSigner(
		[]byte(c.AccessTokenSecret), []byte(c.RefreshTokenSecret),
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration,
	)
	us := services.NewUserService(store, signer, auth.BcryptHasher{Cost: c.BcryptCost}, logger.With("module", "user_service"))
	sm := session.NewManager(app.sessions, []byte(c.SessionSecret), c.SessionTTL)
	app.handlers = rest.NewHandlers(us, signer, sm, store, logger.With("module", "rest"), c.RefreshCookieMaxAge)

	return app, nil
}

// Close releases the stores.
func (app *App) Close() error {
	var err error
	if app.redis != nil {
		err = app.redis.Close()
	}
	if cerr := app.store.Close(); cerr != nil {
		err = cerr
	}
	return err
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := rest.NewServer(app.config.EndpointAddrHTTP, rest.NewRouter(app.handlers), app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.store, app.config.HealthCheckInterval, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a signal arrives or a server fails, then closes the stores.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreKind, "redis_sessions", app.redis != nil)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	if ms, ok := app.sessions.(*session.MemoryStore); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ms.RunSweeper(ctx, app.config.SessionTTL)
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "error closing stores", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
