// Package models defines server-side data models persisted in the database.
package models

import "time"

// RefreshToken is one revocation ledger row: the server-side record of a
// single issued refresh token, keyed by its jti.
type RefreshToken struct {
	ID        int64
	JTI       string
	UserID    int64
	Revoked   bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the record's natural lifetime has elapsed at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}
