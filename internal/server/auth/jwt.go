// Package auth issues and verifies the signed tokens used by the server:
// short-lived API access tokens plus one-shot account-activation and
// password-reset tokens. All tokens are HS256 JWTs carrying a purpose claim
// so a token minted for one flow can never be replayed in another.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avezhnov/ctfdeck/internal/common"
)

// Token purposes.
const (
	PurposeAccess        = "access"
	PurposeActivate      = "activate"
	PurposePasswordReset = "password_reset"
)

// Claims extends the registered JWT claims with the account ID, the token
// purpose, and an optional state fingerprint. The fingerprint binds one-shot
// tokens to mutable account state (verified flag, password hash) so they
// expire the moment that state changes.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string `json:"uid"`
	Purpose string `json:"purpose"`
	State   string `json:"state,omitempty"`
}

// GenerateToken mints a token for userID with the given purpose and state
// fingerprint (empty for plain access tokens).
func GenerateToken(userID, purpose, state string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID:  userID,
		Purpose: purpose,
		State:   state,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry of tokenString and checks
// that it was minted for the expected purpose. Expired tokens yield
// common.ErrTokenExpired; everything else invalid yields common.ErrInvalidToken.
func ParseToken(tokenString, purpose string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Purpose != purpose {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// GetUserIDFromToken extracts the account ID from an access token.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims, err := ParseToken(tokenString, PurposeAccess, secretKey)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// StateFingerprint derives a short stable fingerprint of the given account
// state values. Used as the State claim of one-shot tokens.
func StateFingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
