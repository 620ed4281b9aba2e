// Package sweeper periodically deletes refresh-token ledger rows that expired
// long enough ago that no decision can depend on them anymore.
package sweeper

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

type Sweeper struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	interval    time.Duration
	grace       time.Duration
	logger      logging.Logger
	now         func() time.Time
}

// New returns a sweeper that every interval deletes rows whose expiry is
// older than grace.
func New(db *sql.DB, m repomanager.RepositoryManager, interval, grace time.Duration, logger logging.Logger) *Sweeper {
	return &Sweeper{
		db:          db,
		repomanager: m,
		interval:    interval,
		grace:       grace,
		logger:      logger.With("module", "sweeper"),
		now:         time.Now,
	}
}

// SweepOnce deletes the expired rows and returns how many were removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.grace)
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info(ctx, "expired refresh tokens pruned", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// Run sweeps every interval until ctx is done. A zero interval disables it.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info(ctx, "sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error(ctx, "sweep failed", "error", err)
			}
		}
	}
}
