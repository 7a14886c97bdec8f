// Package users provides the account directory repository.
package users

import (
	"context"

	"github.com/avezhnov/ctfdeck/internal/server/models"
)

// Repository is the user-directory access contract. Login-identifier
// resolution is case-insensitive across both username and email.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByUsernameOrEmail resolves a login identifier against the union
	// of the username and email columns, case-insensitively. It returns
	// common.ErrorNotFound when nothing matches and
	// common.ErrDuplicateAccount when more than one row matches.
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error)

	// FindByEmail matches the email column only, case-insensitively.
	// Used by the password reset flow, where a username must not resolve.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	GetByID(ctx context.Context, id string) (*models.User, error)
	Activate(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateLastActive(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id string, firstName, lastName string) error
}
