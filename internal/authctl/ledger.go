package authctl

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/revocationcache"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/server/sweeper"
	"github.com/redis/go-redis/v9"
)

// dbFlags registers the connection overrides shared by the ledger commands.
func dbFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.DatabaseDriver, "driver", cfg.DatabaseDriver, "database driver (pgx or sqlite)")
	fs.StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "database DSN")
}

func (a *App) open(ctx context.Context, cfg *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	db, rm, err := repomanager.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, rm, nil
}

// Sweep deletes refresh-token rows that expired more than -grace ago.
func (a *App) Sweep(ctx context.Context, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fs := a.flagSet("sweep")
	dbFlags(fs, cfg)
	grace := fs.Duration("grace", cfg.SweepGrace, "keep rows expired less than this long ago")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, rm, err := a.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := sweeper.New(db, rm, 0, *grace, a.logger).SweepOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "deleted %d expired refresh tokens\n", n)
	return nil
}

// RevokeAll revokes every active refresh token of -user. With -redis (or a
// configured Redis address) the revoked ids are mirrored to the cache too.
func (a *App) RevokeAll(ctx context.Context, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fs := a.flagSet("revoke-all")
	dbFlags(fs, cfg)
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "redis address of the revocation cache")
	userID := fs.Int64("user", 0, "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID <= 0 {
		return errors.New("-user is required")
	}

	db, rm, err := a.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var cache revocationcache.Cache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DialTimeout: 2 * time.Second})
		defer client.Close()
		cache = revocationcache.NewRedis(client)
	}

	svc := services.NewTokenService(db, rm, nil, nil, cache, a.logger, services.Options{})
	n, err := svc.RevokeAll(ctx, *userID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "revoked %d refresh tokens of user %d\n", n, *userID)
	return nil
}
