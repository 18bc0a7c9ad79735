// Package server wires the catalog together: database and migrations,
// token denylist, photo storage, services and the HTTP and gRPC endpoints.
// It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/knifecatalog/internal/logging"
	"github.com/dmitrijs2005/knifecatalog/internal/server/auth"
	"github.com/dmitrijs2005/knifecatalog/internal/server/config"
	"github.com/dmitrijs2005/knifecatalog/internal/server/httpapi"
	"github.com/dmitrijs2005/knifecatalog/internal/server/repositories/memory"
	"github.com/dmitrijs2005/knifecatalog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/knifecatalog/internal/server/services"
	"github.com/dmitrijs2005/knifecatalog/internal/server/storage"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	gs "github.com/dmitrijs2005/knifecatalog/internal/server/grpc"
)

// purgeInterval is how often expired refresh tokens are removed.
const purgeInterval = time.Hour

var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       *redis.Client
	userService *services.UserService
	itemService *services.ItemService
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, rm, err := openRepositories(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger, db: db}

	denylist, err := app.newDenylist(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	st, err := newStorage(ctx, c)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	if c.DevMode && c.SecretKey == config.DevSecretKey {
		logger.Warn(ctx, "dev mode: using the built-in secret key, set CATALOG_SECRET_KEY in production")
	}

	issuer := auth.NewTokenIssuer([]byte(c.SecretKey))
	app.userService = services.NewUserService(db, rm, issuer, denylist, c, logger)
	app.itemService = services.NewItemService(db, rm, st, logger)

	if c.AdminUsername != "" {
		if err := app.userService.EnsureAdmin(ctx, c.AdminUsername, c.AdminPassword); err != nil {
			app.close()
			return nil, fmt.Errorf("admin bootstrap error: %w", err)
		}
	}

	return app, nil
}

// openRepositories connects to PostgreSQL and migrates the schema. An empty
// DSN selects the in-memory repositories; transactions then run on an
// in-memory SQLite handle and nothing survives a restart.
func openRepositories(ctx context.Context, c *config.Config, logger logging.Logger) (*sql.DB, repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "database is not configured, catalog data is kept in memory")
		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			return nil, nil, fmt.Errorf("db init error: %w", err)
		}
		return db, memory.NewRepositoryManager(), nil
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations error: %w", err)
	}
	return db, rm, nil
}

// newDenylist uses Redis when configured so revocations are shared between
// replicas and survive restarts.
func (app *App) newDenylist(ctx context.Context) (auth.Denylist, error) {
	if app.config.RedisAddr == "" {
		app.logger.Warn(ctx, "redis is not configured, token revocations are kept in memory")
		return auth.NewMemoryDenylist(), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	app.redis = rdb
	return auth.NewRedisDenylist(rdb), nil
}

func newStorage(ctx context.Context, c *config.Config) (storage.Storage, error) {
	switch c.PhotoStorage {
	case config.PhotoStorageS3:
		st, err := storage.NewS3Storage(ctx, c)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.PhotoStorageLocal:
		st, err := storage.NewLocalStorage(c.UploadDir)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown photo storage %q", c.PhotoStorage)
}

func (app *App) close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
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
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.userService, app.itemService, app.config.MaxPhotoSize)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.itemService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// purgeRefreshTokens removes expired refresh tokens until ctx is done.
func (app *App) purgeRefreshTokens(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.userService.PurgeExpiredRefreshTokens(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				app.logger.Error(ctx, "refresh token purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "expired refresh tokens purged", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.purgeRefreshTokens(ctx, purgeInterval)
	}()

	wg.Wait()
	app.logger.Info(ctx, "App stopped")
}
