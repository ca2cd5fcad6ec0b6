package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind discriminates what a token may be used for
type Kind string

const (
	// KindAccess authorizes API calls
	KindAccess Kind = "access"

	// KindRefresh may only be exchanged for a new token pair
	KindRefresh Kind = "refresh"
)

// IsValid reports whether k is a known token kind
func (k Kind) IsValid() bool {
	return k == KindAccess || k == KindRefresh
}

// Claims represents the claims embedded in every issued token
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Kind     Kind   `json:"type"`
}

// UserID returns the numeric user identifier carried in the subject
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return id, nil
}

// IssuedAtTime returns the iat claim or the zero time
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime returns the exp claim or the zero time
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// checkShape enforces the structural invariants that the JWT library does not
func (c *Claims) checkShape() error {
	if c.Subject == "" {
		return errors.New("missing sub claim")
	}
	if !c.Kind.IsValid() {
		return fmt.Errorf("unknown token type %q", c.Kind)
	}
	if c.IssuedAt == nil || c.ExpiresAt == nil {
		return errors.New("missing iat or exp claim")
	}
	if !c.ExpiresAt.After(c.IssuedAt.Time) {
		return errors.New("exp must be after iat")
	}
	return nil
}
