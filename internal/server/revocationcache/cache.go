// Package revocationcache mirrors revoked refresh-token ids into a fast
// key-value store. The ledger stays authoritative: a cache hit means the
// token is revoked, a miss means "ask the ledger".
package revocationcache

import (
	"context"
	"time"
)

// Entry is one revoked token to mirror.
type Entry struct {
	JTI       string
	ExpiresAt time.Time
}

type Cache interface {
	// MarkRevoked records the entries. Entries already past their expiry
	// are skipped.
	MarkRevoked(ctx context.Context, entries ...Entry) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Noop is used when no cache is configured.
type Noop struct{}

func (Noop) MarkRevoked(context.Context, ...Entry) error { return nil }

func (Noop) IsRevoked(context.Context, string) (bool, error) { return false, nil }
