package services

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
)

// RotationState names the step a refresh request reached.
type RotationState string

const (
	StateStart            RotationState = "START"
	StateTokenLocated     RotationState = "TOKEN_LOCATED"
	StateMatchChecked     RotationState = "MATCH_CHECKED"
	StateSignatureChecked RotationState = "SIGNATURE_CHECKED"
	StateReissued         RotationState = "REISSUED"
)

// Rotate exchanges the presented refresh token for a new pair.
//
// username must come from an authenticated access token, never from the
// refresh token itself. The presented token has to equal the one on file and
// verify under the refresh key. The stored value is replaced with a
// compare-and-set on the presented token, so of several concurrent calls
// presenting the same token at most one succeeds. Every rejection is
// ErrorUnauthorized and leaves the store untouched.
func (s *UserService) Rotate(ctx context.Context, username, presented string) (*TokenPair, error) {
	if username == "" {
		return nil, s.rejectRotation(ctx, StateStart, username, "no identity")
	}

	repo := s.repomanager.Users()
	user, err := repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.rejectRotation(ctx, StateStart, username, "unknown user")
		}
		s.logger.Error(ctx, "error loading user", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	// TOKEN_LOCATED
	if presented == "" || user.RefreshToken == "" {
		return nil, s.rejectRotation(ctx, StateTokenLocated, username, "no refresh token")
	}

	// MATCH_CHECKED
	if subtle.ConstantTimeCompare([]byte(presented), []byte(user.RefreshToken)) != 1 {
		return nil, s.rejectRotation(ctx, StateMatchChecked, username, "refresh token does not match stored value")
	}

	// SIGNATURE_CHECKED
	claims, err := s.signer.Verify(presented, auth.KindRefresh)
	if err != nil {
		return nil, s.rejectRotation(ctx, StateSignatureChecked, username, err.Error())
	}
	if claims.Username != username {
		return nil, s.rejectRotation(ctx, StateSignatureChecked, username, "refresh token issued to another user")
	}

	pair, err := s.issueFor(username)
	if err != nil {
		s.logger.Error(ctx, "error issuing tokens", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	swapped, err := repo.SwapRefreshToken(ctx, user.ID, presented, pair.RefreshToken)
	if err != nil {
		s.logger.Error(ctx, "error storing refresh token", "username", username, "error", err)
		return nil, common.ErrorInternal
	}
	if !swapped {
		return nil, s.rejectRotation(ctx, StateReissued, username, "refresh token already rotated")
	}

	s.logger.Info(ctx, "refresh token rotated", "username", username, "state", StateReissued)
	return pair, nil
}

func (s *UserService) rejectRotation(ctx context.Context, state RotationState, username, reason string) error {
	s.logger.Warn(ctx, "refresh rejected", "state", state, "username", username, "reason", reason)
	return common.ErrorUnauthorized
}
