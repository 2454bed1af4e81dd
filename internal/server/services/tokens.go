package services

import (
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// issueFor mints a new access/refresh pair for username. Every call yields
// new iat, jti and signatures; persisting the refresh token is up to the
// caller.
func (s *UserService) issueFor(username string) (*TokenPair, error) {
	access, err := s.signer.Sign(auth.Claims{Username: username}, auth.KindAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signer.Sign(auth.Claims{Username: username}, auth.KindRefresh)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
