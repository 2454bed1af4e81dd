// Package models defines server-side records persisted by the user store.
package models

import "time"

// User is the identity record. PasswordHash is written once at registration.
// RefreshToken holds the single currently valid refresh token; empty means
// none is on file (never logged in, or logged out).
type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
	RefreshToken string
	CreatedAt    time.Time
}
