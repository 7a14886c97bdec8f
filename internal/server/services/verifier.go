// Package services contains server-side business logic: credential
// verification, account lifecycle, and token issuance.
package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/avezhnov/ctfdeck/internal/common"
	"github.com/avezhnov/ctfdeck/internal/server/models"
	"github.com/avezhnov/ctfdeck/internal/server/repositories/users"
)

// seams for tests
var (
	compareHashAndPassword = bcrypt.CompareHashAndPassword
	generateFromPassword   = bcrypt.GenerateFromPassword
)

// Verifier checks a login identifier (username or email, case-insensitive)
// and a plaintext password against the account directory.
//
// Both miss outcomes — unknown identifier and wrong password — come back as
// (nil, nil): indistinguishable to the caller by value and, because the
// unknown-identifier path burns one bcrypt hash at the same cost, roughly
// indistinguishable by response time as well.
//
// The Verifier deliberately ignores the IsActive flag; whether a disabled
// account may log in is the login service's policy, not identifier
// resolution.
type Verifier struct {
	users      users.Repository
	bcryptCost int
}

// NewVerifier constructs a Verifier over the given directory repository.
func NewVerifier(repo users.Repository, bcryptCost int) *Verifier {
	return &Verifier{users: repo, bcryptCost: bcryptCost}
}

// Verify resolves identifier and checks password.
//
//	match              -> (account, nil)
//	no account / wrong password -> (nil, nil)
//	two or more accounts matched -> (nil, common.ErrDuplicateAccount)
func (v *Verifier) Verify(ctx context.Context, identifier, password string) (*models.User, error) {
	user, err := v.users.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Burn one hash so an unknown identifier costs the same
			// wall-clock time as a wrong password.
			_, _ = generateFromPassword([]byte(password), v.bcryptCost)
			return nil, nil
		}
		if errors.Is(err, common.ErrDuplicateAccount) {
			// Integrity violation: never pick a row silently.
			return nil, err
		}
		return nil, fmt.Errorf("error resolving identifier: %w", err)
	}

	if compareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}

	return user, nil
}
