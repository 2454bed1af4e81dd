// Package common defines shared constants and sentinel errors used across
// the gophauth server and client. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal           = errors.New("internal error")
	ErrorUnauthorized       = errors.New("unauthorized")
	ErrorInvalidInput       = errors.New("invalid input")
	ErrorInvalidCredentials = errors.New("invalid credentials")

	// Token verification reasons. All three mean "unauthenticated" for access
	// control; they are kept apart for logging.
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
)
