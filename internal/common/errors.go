// Package common defines shared constants and sentinel errors used across
// ctfdeck components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrDuplicateAccount means more than one account matched a login
	// identifier that must resolve to at most one row. It is an integrity
	// violation and must never be resolved by silently picking a row.
	ErrDuplicateAccount = errors.New("duplicate account for identifier")

	// ErrorAlreadyExists is returned when a unique constraint rejects an insert.
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials covers both "no such account" and "wrong
	// password". The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountInactive means the credentials were correct but the account
	// is disabled. Handlers must answer with the same generic message as
	// ErrInvalidCredentials.
	ErrAccountInactive = errors.New("account inactive")

	// Validation errors.
	ErrorValidation = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
