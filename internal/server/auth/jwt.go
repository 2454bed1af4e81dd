// Package auth holds the server's credential primitives: HS256 token signing
// and verification, and bcrypt password hashing.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind separates access tokens from refresh tokens. Each kind is signed with
// its own key and carries the kind as a claim.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims carried by every token. RegisteredClaims.ID is a random UUID, so two
// tokens minted for the same user in the same second still differ.
type Claims struct {
	Username string `json:"username"`
	Kind     Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Signer mints and verifies HS256 tokens. It is immutable after construction
// and safe for concurrent use.
type Signer struct {
	keys map[Kind][]byte
	ttls map[Kind]time.Duration
	now  func() time.Time
}

// NewSigner builds a Signer with one secret and one lifetime per kind.
func NewSigner(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *Signer {
	return &Signer{
		keys: map[Kind][]byte{KindAccess: accessSecret, KindRefresh: refreshSecret},
		ttls: map[Kind]time.Duration{KindAccess: accessTTL, KindRefresh: refreshTTL},
		now:  time.Now,
	}
}

// TTL returns the configured lifetime for kind.
func (s *Signer) TTL(kind Kind) time.Duration {
	return s.ttls[kind]
}

// Sign stamps claims with kind, iat, exp and a fresh jti and signs them with
// the key for kind. Only Username (and optionally Subject) are taken from the
// caller.
func (s *Signer) Sign(claims Claims, kind Kind) (string, error) {
	key, ok := s.keys[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}

	now := s.now()
	claims.Kind = kind
	claims.ID = uuid.NewString()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttls[kind]))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks the signature under the key for kind, the expiry and the kind
// claim. Failures are *VerificationError.
func (s *Signer) Verify(tokenString string, kind Kind) (*Claims, error) {
	return s.verify(tokenString, kind, true)
}

// VerifyIgnoringExpiry is Verify without the time check. The token must still
// be authentic, of the right kind and carry an exp claim.
func (s *Signer) VerifyIgnoringExpiry(tokenString string, kind Kind) (*Claims, error) {
	return s.verify(tokenString, kind, false)
}

func (s *Signer) verify(tokenString string, kind Kind, checkTime bool) (*Claims, error) {
	key, ok := s.keys[kind]
	if !ok {
		return nil, &VerificationError{Reason: ReasonMalformed, Err: fmt.Errorf("unknown token kind %q", kind)}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if checkTime {
		opts = append(opts, jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	}, opts...)
	if err != nil {
		return nil, classify(err)
	}

	if claims.ExpiresAt == nil {
		return nil, &VerificationError{Reason: ReasonMalformed, Err: errors.New("missing exp claim")}
	}
	if claims.Kind != kind {
		return nil, &VerificationError{Reason: ReasonMalformed, Err: fmt.Errorf("want %s token, got %q", kind, claims.Kind)}
	}
	if claims.Username == "" {
		return nil, &VerificationError{Reason: ReasonMalformed, Err: errors.New("missing username claim")}
	}
	return claims, nil
}

func classify(err error) *VerificationError {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &VerificationError{Reason: ReasonSignatureInvalid, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &VerificationError{Reason: ReasonExpired, Err: err}
	default:
		return &VerificationError{Reason: ReasonMalformed, Err: err}
	}
}

// Reason says why a token was rejected. It is for logs only; every reason
// means "unauthenticated" to callers.
type Reason int

const (
	ReasonMalformed Reason = iota + 1
	ReasonSignatureInvalid
	ReasonExpired
)

func (r Reason) String() string {
	switch r {
	case ReasonMalformed:
		return "malformed"
	case ReasonSignatureInvalid:
		return "signature_invalid"
	case ReasonExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// VerificationError is returned by Verify and VerifyIgnoringExpiry.
// errors.Is matches it against the common.ErrToken* sentinel for its reason.
type VerificationError struct {
	Reason Reason
	Err    error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("token rejected (%s): %v", e.Reason, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

func (e *VerificationError) Is(target error) bool {
	switch target {
	case common.ErrTokenMalformed:
		return e.Reason == ReasonMalformed
	case common.ErrTokenSignatureInvalid:
		return e.Reason == ReasonSignatureInvalid
	case common.ErrTokenExpired:
		return e.Reason == ReasonExpired
	}
	return false
}
