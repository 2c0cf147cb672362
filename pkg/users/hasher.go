package users

import (
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/identkit/userhub/pkg/errors"
)

// DefaultHashCost is the bcrypt work factor used when none is configured.
const DefaultHashCost = 10

// Hasher computes one-way salted password hashes and verifies them.
type Hasher interface {
	// Hash generates the hashed string from plain-text.
	Hash(plain string) (string, error)

	// Verify compares plain-text to a stored hash in constant time.
	// Malformed hashes verify as false, never as an error.
	Verify(plain, hash string) bool
}

type bcryptHasher struct {
	cost int
}

// NewHasher creates a bcrypt-backed Hasher with the given work factor.
// Out-of-range costs fall back to DefaultHashCost.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", apperrors.NewInternal("failed to hash password", err)
	}
	return string(hash), nil
}

func (h *bcryptHasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
