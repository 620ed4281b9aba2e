package users

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

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	var createdAt int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username, hashed_password, is_active)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_at
	`, user.Email, user.Username, user.HashedPassword, boolToInt(user.IsActive)).Scan(&user.ID, &createdAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", user.Username, common.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return user, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `
		SELECT id, email, username, hashed_password, is_active, created_at
		FROM users WHERE id = ?
	`, id)
}

func (r *SQLiteRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.getOne(ctx, `
		SELECT id, email, username, hashed_password, is_active, created_at
		FROM users WHERE username = ? OR email = ?
		LIMIT 1
	`, login, login)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var (
		u         models.User
		active    int64
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Email, &u.Username, &u.HashedPassword, &active, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.IsActive = active != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
