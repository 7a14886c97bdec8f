// Package refreshtokens provides a PostgreSQL-backed repository for the
// server-stored refresh tokens used in the authentication flow.
package refreshtokens

import (
	"context"
	"time"

	"github.com/avezhnov/ctfdeck/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	Delete(ctx context.Context, token string) error

	// DeleteForUser revokes every refresh token of a user. Used after a
	// password change or reset.
	DeleteForUser(ctx context.Context, userID string) error
}
