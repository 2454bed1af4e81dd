package auth

import "golang.org/x/crypto/bcrypt"

// BcryptHasher hashes passwords with bcrypt at a fixed cost.
type BcryptHasher struct {
	Cost int
}

// ErrPasswordTooLong is returned for passwords bcrypt cannot hash (over 72
// bytes).
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

func (h BcryptHasher) Hash(password string) ([]byte, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

// Verify reports whether password matches hash. Malformed hashes never match.
func (h BcryptHasher) Verify(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
