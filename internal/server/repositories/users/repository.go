package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository is the read side of user management used by the token core,
// plus Create for registration.
type Repository interface {
	// Create inserts the user and fills in ID and CreatedAt. A taken email or
	// username yields common.ErrConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetByLogin matches login against username or email.
	GetByLogin(ctx context.Context, login string) (*models.User, error)
}
