// Package refreshtokens declares the revocation ledger: the persisted record
// of every refresh token ever issued, keyed by jti, and whether it has been
// revoked.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository defines the ledger operations. A record is created once per
// issued refresh token and only ever moves from not-revoked to revoked.
type Repository interface {
	// Insert stores a new record. A duplicate jti yields common.ErrConflict.
	Insert(ctx context.Context, jti string, userID int64, expiresAt time.Time) error

	// Find returns the record for jti or common.ErrorNotFound.
	Find(ctx context.Context, jti string) (*models.RefreshToken, error)

	// MarkRevoked flips the record to revoked. It reports whether a
	// not-yet-revoked record was updated; missing or already revoked records
	// are not an error.
	MarkRevoked(ctx context.Context, jti string) (bool, error)

	// MarkAllRevoked revokes every active record of userID and returns how
	// many were changed.
	MarkAllRevoked(ctx context.Context, userID int64) (int64, error)

	// ListActive returns the non-revoked records of userID.
	ListActive(ctx context.Context, userID int64) ([]models.RefreshToken, error)

	// DeleteExpired removes records whose expiry is before the cutoff.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
