// Package services contains server-side business logic. UserService handles
// registration, login, refresh-token rotation and logout.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// dummyPassword is hashed once and compared against when a login names an
// unknown user, so both failure paths cost one bcrypt comparison.
const dummyPassword = "gophauth-dummy-password"

// UserService provides authentication operations on top of a user store.
type UserService struct {
	repomanager repomanager.RepositoryManager
	signer      *auth.Signer
	hasher      auth.BcryptHasher
	logger      logging.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// NewUserService constructs a UserService.
func NewUserService(m repomanager.RepositoryManager, signer *auth.Signer, hasher auth.BcryptHasher, logger logging.Logger) *UserService {
	return &UserService{
		repomanager: m,
		signer:      signer,
		hasher:      hasher,
		logger:      logger,
	}
}

// Register creates a user. The existence check and the insert share one
// repository transaction; a uniqueness violation reported by the store at
// insert time is treated the same as a hit on the check.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, common.ErrorInvalidInput
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password too long", common.ErrorInvalidInput)
		}
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	var created *models.User
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, repo users.Repository) error {
		_, err := repo.GetUserByLogin(ctx, username)
		if err == nil {
			return common.ErrorAlreadyExists
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		created, err = repo.Create(ctx, &models.User{UserName: username, PasswordHash: hash})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		s.logger.Error(ctx, "error creating user", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "user registered", "username", username)
	return created, nil
}

// Login verifies the password and issues a fresh token pair. The new refresh
// token replaces whatever was stored, so any earlier one stops rotating.
// Unknown user and wrong password both yield ErrorInvalidCredentials.
func (s *UserService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	if username == "" || password == "" {
		return nil, common.ErrorInvalidInput
	}

	repo := s.repomanager.Users()
	user, err := repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(s.getDummyHash(), password)
			return nil, common.ErrorInvalidCredentials
		}
		s.logger.Error(ctx, "error loading user", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, common.ErrorInvalidCredentials
	}

	pair, err := s.issueFor(user.UserName)
	if err != nil {
		s.logger.Error(ctx, "error issuing tokens", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	if err := repo.UpdateRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		s.logger.Error(ctx, "error storing refresh token", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	return pair, nil
}

// Logout revokes the user's stored refresh token.
func (s *UserService) Logout(ctx context.Context, username string) error {
	repo := s.repomanager.Users()
	user, err := repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "error loading user", "username", username, "error", err)
		return common.ErrorInternal
	}

	if err := repo.UpdateRefreshToken(ctx, user.ID, ""); err != nil {
		s.logger.Error(ctx, "error revoking refresh token", "username", username, "error", err)
		return common.ErrorInternal
	}
	return nil
}

func (s *UserService) getDummyHash() []byte {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
