package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// SQLiteRepository implements the ledger for the embedded SQLite backend.
// Timestamps are stored as unix seconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (jti, user_id, expires_at) VALUES (?, ?, ?)
	`, jti, userID, expiresAt.Unix())
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("jti %s: %w", jti, common.ErrConflict)
		}
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Find(ctx context.Context, jti string) (*models.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, jti, user_id, revoked, expires_at, created_at
		FROM refresh_tokens WHERE jti = ?
	`, jti)
	t, err := scanSQLite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) MarkRevoked(ctx context.Context, jti string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1 WHERE jti = ? AND revoked = 0
	`, jti)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) MarkAllRevoked(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ? AND revoked = 0
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) ListActive(ctx context.Context, userID int64) ([]models.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, jti, user_id, revoked, expires_at, created_at
		FROM refresh_tokens WHERE user_id = ? AND revoked = 0
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refresh tokens: %w", err)
	}
	defer rows.Close()

	var out []models.RefreshToken
	for rows.Next() {
		t, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refresh token row: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate refresh token rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM refresh_tokens WHERE expires_at < ?
	`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(s scanner) (*models.RefreshToken, error) {
	var (
		t         models.RefreshToken
		revoked   int64
		expires   sql.NullInt64
		createdAt int64
	)
	if err := s.Scan(&t.ID, &t.JTI, &t.UserID, &revoked, &expires, &createdAt); err != nil {
		return nil, err
	}
	t.Revoked = revoked != 0
	if expires.Valid {
		t.ExpiresAt = time.Unix(expires.Int64, 0).UTC()
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &t, nil
}
