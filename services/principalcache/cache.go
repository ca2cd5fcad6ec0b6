// Package principalcache keeps recently resolved principals for a short time
// so the request interceptor does not hit the credential store on every call.
package principalcache

import (
	"context"
	"errors"

	"github.com/jntm/fundtheme/models"
)

// ErrMiss is returned by Get when no fresh entry exists
var ErrMiss = errors.New("principal cache miss")

// Cache stores principals keyed by user ID. Implementations must only hold
// active principals and must honour Delete immediately.
type Cache interface {
	Get(ctx context.Context, userID int64) (*models.Principal, error)
	Set(ctx context.Context, principal *models.Principal) error
	Delete(ctx context.Context, userID int64) error
}

// Noop never stores anything
type Noop struct{}

// Get always misses
func (Noop) Get(context.Context, int64) (*models.Principal, error) { return nil, ErrMiss }

// Set does nothing
func (Noop) Set(context.Context, *models.Principal) error { return nil }

// Delete does nothing
func (Noop) Delete(context.Context, int64) error { return nil }
