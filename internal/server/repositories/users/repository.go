// Package users is the credential store: persistence of accounts, their
// password digests and admin flags.
package users

import (
	"context"

	"github.com/dmitrijs2005/knifecatalog/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its ID and CreatedAt. A taken username
	// yields common.ErrDuplicateUsername.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByLogin returns common.ErrorNotFound when no such user exists.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)

	// GetUserByID returns common.ErrorNotFound when no such user exists.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// SetAdmin changes the admin flag; common.ErrorNotFound for unknown users.
	SetAdmin(ctx context.Context, login string, isAdmin bool) error
}
