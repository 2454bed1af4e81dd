// Package users stores identity records: username, password hash and the
// single refresh token currently on file for each user.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is the user store.
//
// Create fails with common.ErrorAlreadyExists when the username is taken,
// including when a concurrent Create won the race. GetUserByLogin fails with
// common.ErrorNotFound for unknown usernames.
//
// UpdateRefreshToken overwrites the stored token unconditionally (an empty
// token clears it). SwapRefreshToken replaces it only if the stored value is
// still current; it reports false, without error, when it is not. Both are
// single-row atomic updates.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
	UpdateRefreshToken(ctx context.Context, userID string, token string) error
	SwapRefreshToken(ctx context.Context, userID string, current string, next string) (bool, error)
}
