// Package server initializes and runs the authkeeper server: it opens the
// database, loads signing keys, wires the token service and serves the HTTP
// API until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/keys"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/revocationcache"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/server/sweeper"
	"github.com/dmitrijs2005/authkeeper/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

const serviceName = "authkeeper"

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	server   *httpapi.Server
	sweeper  *sweeper.Sweeper
	shutdown func(context.Context) error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	shutdown, err := telemetry.Setup(ctx, serviceName, c.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}

	app := &App{config: c, logger: logger, shutdown: shutdown}
	if err := app.init(ctx); err != nil {
		app.Close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	db, rm, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	loader := keys.NewLoader(keys.S3Options{
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
	})
	kp, err := loader.Load(ctx, c.JWTAlgorithm, c.PrivateKeyPath, c.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("key load error: %w", err)
	}

	codec, err := auth.NewCodec(auth.Settings{
		Algorithm:  c.JWTAlgorithm,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	}, kp)
	if err != nil {
		return fmt.Errorf("codec init error: %w", err)
	}

	var cache revocationcache.Cache = revocationcache.Noop{}
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.logger.Warn(ctx, "revocation cache unavailable, using ledger only", "addr", c.RedisAddr, "error", err)
		}
		cache = revocationcache.NewRedis(app.redis)
	}

	pool := password.NewPool(password.NewHasher(c.BcryptCost), c.HashWorkers)
	svc := services.NewTokenService(db, rm, codec, pool, cache, app.logger, services.Options{
		RevokeOnRotate: c.RevokeOnRotate,
	})

	handler := httpapi.NewHandler(svc, app.logger, httpapi.Options{
		AccessTTL:      c.AccessTokenTTL,
		RefreshTTL:     c.RefreshTokenTTL,
		SecureCookies:  c.SecureCookies,
		AllowedOrigins: c.CORSOrigins,
	})
	app.server = httpapi.NewServer(c.HTTPAddr, httpapi.NewRouter(handler), app.logger)
	app.sweeper = sweeper.New(db, rm, c.SweepInterval, c.SweepGrace, app.logger)

	return nil
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

// Run blocks until ctx is cancelled, a termination signal arrives or the
// HTTP server fails, then releases every resource.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

	app.Close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "App stopped")
}

// Close releases the database, the redis client and flushes traces.
func (app *App) Close(ctx context.Context) {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close failed", "error", err)
		}
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.shutdown != nil {
		if err := app.shutdown(ctx); err != nil {
			app.logger.Error(ctx, "telemetry shutdown failed", "error", err)
		}
	}
}
