// Package models contains the domain entities persisted by the server.
package models

import "time"

// Account roles. Organizers and admins are created via adminctl, never
// through self-registration.
const (
	UserTypePlayer    = "user"
	UserTypeOrganizer = "organizer"
	UserTypeAdmin     = "admin"
)

// User is an account in the platform directory. Username and Email are
// unique case-insensitively (enforced by expression indexes in the schema).
// PasswordHash is an opaque bcrypt hash; the plaintext never leaves the
// request that carried it.
type User struct {
	ID            string
	Username      string
	Email         string
	FirstName     string
	LastName      string
	PasswordHash  string
	Type          string
	IsActive      bool
	EmailVerified bool
	LastActive    time.Time
	CreatedAt     time.Time
}
