// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength is the longest password bcrypt accepts, in bytes
const MaxLength = 72

// DefaultCost is used when no cost is configured
const DefaultCost = 12

// ErrTooLong is returned by Hash for passwords over MaxLength bytes
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hasher hashes and verifies passwords
type Hasher struct {
	cost int

	// dummyHash is compared against when the account does not exist, so a
	// failed login costs the same whether or not the username is known.
	dummyHash []byte
}

// NewHasher creates a Hasher with the given bcrypt cost. Out of range values
// fall back to DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	h := &Hasher{cost: cost}
	h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("fundtheme-dummy-password"), cost)
	return h
}

// Cost returns the bcrypt cost in use
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns the bcrypt hash of plain
func (h *Hasher) Hash(plain string) (string, error) {
	if len(plain) > MaxLength {
		return "", ErrTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plain matches hash, in constant time
func (h *Hasher) Verify(plain, hash string) bool {
	if len(plain) > MaxLength || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// VerifyDummy burns the same work as a real Verify and always returns false
func (h *Hasher) VerifyDummy(plain string) bool {
	if len(plain) > MaxLength {
		plain = plain[:MaxLength]
	}
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plain))
	return false
}
