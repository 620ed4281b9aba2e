package password

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Engine is the CPU-bound work a Pool schedules. *Hasher implements it.
type Engine interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// Pool runs Engine calls with bounded parallelism so bursts of logins
// cannot saturate every core with bcrypt work.
type Pool struct {
	hasher Engine
	sem    *semaphore.Weighted
}

// NewPool limits hasher to workers concurrent computations. workers <= 0
// means runtime.NumCPU().
func NewPool(hasher Engine, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{hasher: hasher, sem: semaphore.NewWeighted(int64(workers))}
}

func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)
	return p.hasher.Hash(password)
}

// Verify returns false with ctx.Err() if no slot frees up before ctx ends.
func (p *Pool) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.sem.Release(1)
	return p.hasher.Verify(password, hash), nil
}
