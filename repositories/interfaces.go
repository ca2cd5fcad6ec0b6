package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jntm/fundtheme/models"
)

var (
	// ErrNotFound is returned when a lookup matches no record
	ErrNotFound = errors.New("record not found")

	// ErrUsernameExists is returned when an insert collides on username
	ErrUsernameExists = errors.New("username already exists")

	// ErrEmailExists is returned when an insert collides on email
	ErrEmailExists = errors.New("email already exists")
)

// TransactionManager manages database transactions following the GrantPulse pattern
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context, which carries the transaction
	// so repositories called with it run their queries inside it
	Context() context.Context
}

// UserRepository is the credential store. It owns user records; the auth core
// only reads them, creates them on registration and updates the password hash,
// the login timestamp and the account status.
type UserRepository interface {
	// Create inserts a new user and sets its ID.
	// Returns ErrUsernameExists or ErrEmailExists on a unique violation.
	Create(ctx context.Context, user *models.User) error

	// FindByID retrieves a user by ID. Returns ErrNotFound when absent.
	FindByID(ctx context.Context, id int64) (*models.User, error)

	// FindByUsername retrieves a user by username. Returns ErrNotFound when absent.
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// ExistsByUsername reports whether a user with username exists
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail reports whether a user with email exists
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// List retrieves users ordered by ID with pagination
	List(ctx context.Context, limit, offset int) ([]*models.User, error)

	// Count returns the total number of users
	Count(ctx context.Context) (int64, error)

	// UpdateLastLogin sets the last login timestamp
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error

	// UpdatePasswordHash replaces the stored password hash
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error

	// UpdateStatus changes the account status
	UpdateStatus(ctx context.Context, id int64, status models.UserStatus) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users UserRepository
}
