// Package server assembles and runs the kanban server: storage backend,
// page cache, rate limiter, notification hub and the HTTP surface.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dominikcirko/kanban-app/internal/dbx"
	"github.com/dominikcirko/kanban-app/internal/logging"
	"github.com/dominikcirko/kanban-app/internal/server/auth"
	"github.com/dominikcirko/kanban-app/internal/server/cache"
	"github.com/dominikcirko/kanban-app/internal/server/config"
	"github.com/dominikcirko/kanban-app/internal/server/httpapi"
	"github.com/dominikcirko/kanban-app/internal/server/metrics"
	"github.com/dominikcirko/kanban-app/internal/server/notify"
	"github.com/dominikcirko/kanban-app/internal/server/ratelimit"
	"github.com/dominikcirko/kanban-app/internal/server/repositories/repomanager"
	"github.com/dominikcirko/kanban-app/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	cache   *cache.PageCache
	hub     *notify.Hub
	server  *httpapi.HTTPServer
	storage repomanager.RepositoryManager
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	app := &App{config: c, logger: logger}

	for _, w := range c.Insecure() {
		logger.Warn(ctx, w)
	}

	if c.DatabaseDSN == "" {
		app.storage = repomanager.NewMemoryRepositoryManager()
	} else {
		db, err := repomanager.Open(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.db = db
		app.storage = repomanager.NewPostgresRepositoryManager(db)
	}

	if err := app.storage.RunMigrations(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	pc, err := cache.New(c.CacheMaxPages)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("cache init error: %w", err)
	}
	app.cache = pc

	m := metrics.New()
	app.hub = notify.NewHub(logger, m, notify.DefaultQueueSize)

	db := app.dbtx()

	us := services.NewUserService(db, app.storage, auth.NewTokenIssuer([]byte(c.SecretKey), c.TokenValidityDuration), logger)
	ts := services.NewTaskService(db, app.storage, pc, app.hub, m, logger)

	app.server = httpapi.NewHTTPServer(c.HTTPAddr, logger, httpapi.Deps{
		Tasks:         ts,
		Users:         us,
		Authenticator: us,
		Verifier:      auth.NewTokenVerifier([]byte(c.SecretKey)),
		Limiter:       ratelimit.New(c.RateLimitCapacity, c.RateLimitWindow, c.RateLimitMaxClients),
		Metrics:       m,
		Notifications: notify.NewGateway(app.hub, logger, c.WSOriginPatterns),
		Store:         app.storage,
	})

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}

// dbtx is the handle repositories are bound to. It stays nil in memory mode.
func (app *App) dbtx() dbx.DBTX {
	if app.db == nil {
		return nil
	}
	return app.db
}

// Close releases the hub, cache and database connection.
func (app *App) Close() {
	if app.hub != nil {
		app.hub.Close()
	}
	if app.cache != nil {
		app.cache.Close()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(context.Background(), "closing database", "err", err)
		}
	}
}
