package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jntm/fundtheme/models"
	"github.com/jntm/fundtheme/repositories"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation pq.ErrorCode = "23505"

const userColumns = `id, username, email, password_hash, nickname, phone, avatar_url,
		current_theme, risk_tolerance, role, status, last_login_at, created_at, updated_at`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, nickname, phone, avatar_url,
			current_theme, risk_tolerance, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		nullString(user.Nickname),
		nullString(user.Phone),
		nullString(user.AvatarURL),
		user.CurrentTheme,
		user.RiskTolerance,
		user.Role,
		user.Status,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		if dupErr := duplicateError(err); dupErr != nil {
			return dupErr
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Debug("user created", zap.Int64("id", user.ID), zap.String("username", user.Username))
	return nil
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// FindByUsername retrieves a user by username
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ExistsByUsername reports whether a user with username exists
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
}

// ExistsByEmail reports whether a user with email exists
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *UserRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var found bool
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return found, nil
}

// List retrieves users ordered by ID
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

// Count returns the total number of users
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return total, nil
}

// UpdateLastLogin sets the last login timestamp
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.updateOne(ctx, id,
		`UPDATE users SET last_login_at = $2, updated_at = $2 WHERE id = $1`,
		id, at)
}

// UpdatePasswordHash replaces the stored password hash
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.updateOne(ctx, id,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, time.Now().UTC())
}

// UpdateStatus changes the account status
func (r *UserRepository) UpdateStatus(ctx context.Context, id int64, status models.UserStatus) error {
	return r.updateOne(ctx, id,
		`UPDATE users SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
}

func (r *UserRepository) updateOne(ctx context.Context, id int64, query string, args ...interface{}) error {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, repositories.ErrNotFound)
	}

	r.logger.Debug("user updated", zap.Int64("id", id))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *UserRepository) WithTx(tx repositories.Transaction) repositories.UserRepository {
	return &txUserRepository{UserRepository: r, tx: tx}
}

// txUserRepository runs every call on the bound transaction's context
type txUserRepository struct {
	*UserRepository
	tx repositories.Transaction
}

func (r *txUserRepository) bind(ctx context.Context) context.Context {
	if _, ok := GetTransactionFromContext(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, transactionContextKey{}, r.tx)
}

func (r *txUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.UserRepository.Create(r.bind(ctx), user)
}

func (r *txUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.UserRepository.FindByID(r.bind(ctx), id)
}

func (r *txUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.UserRepository.FindByUsername(r.bind(ctx), username)
}

func (r *txUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.UserRepository.ExistsByUsername(r.bind(ctx), username)
}

func (r *txUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.UserRepository.ExistsByEmail(r.bind(ctx), email)
}

func (r *txUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return r.UserRepository.List(r.bind(ctx), limit, offset)
}

func (r *txUserRepository) Count(ctx context.Context) (int64, error) {
	return r.UserRepository.Count(r.bind(ctx))
}

func (r *txUserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.UserRepository.UpdateLastLogin(r.bind(ctx), id, at)
}

func (r *txUserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.UserRepository.UpdatePasswordHash(r.bind(ctx), id, hash)
}

func (r *txUserRepository) UpdateStatus(ctx context.Context, id int64, status models.UserStatus) error {
	return r.UserRepository.UpdateStatus(r.bind(ctx), id, status)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var nickname, phone, avatarURL sql.NullString
	var lastLogin sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&nickname,
		&phone,
		&avatarURL,
		&user.CurrentTheme,
		&user.RiskTolerance,
		&user.Role,
		&user.Status,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Nickname = nickname.String
	user.Phone = phone.String
	user.AvatarURL = avatarURL.String
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLoginAt = &t
	}
	user.Role = models.ParseUserRole(string(user.Role))

	return user, nil
}

// duplicateError maps a unique violation onto the matching repository error
func duplicateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return nil
	}
	switch {
	case strings.Contains(pqErr.Constraint, "email"):
		return fmt.Errorf("%w: %s", repositories.ErrEmailExists, pqErr.Constraint)
	default:
		return fmt.Errorf("%w: %s", repositories.ErrUsernameExists, pqErr.Constraint)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
