package models

import "time"

// RefreshToken is a server-stored opaque token that lets a client obtain a
// new access token without re-sending credentials.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
