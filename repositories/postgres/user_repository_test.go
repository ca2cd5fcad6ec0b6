package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jntm/fundtheme/models"
	"github.com/jntm/fundtheme/repositories"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockRepo(t *testing.T) (*UserRepository, *DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db := Wrap(sqlDB, zap.NewNop())
	repo := NewUserRepository(db, zap.NewNop()).(*UserRepository)
	return repo, db, mock
}

var userRowColumns = []string{
	"id", "username", "email", "password_hash", "nickname", "phone", "avatar_url",
	"current_theme", "risk_tolerance", "role", "status", "last_login_at", "created_at", "updated_at",
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns generated id", func(t *testing.T) {
		repo, _, mock := newMockRepo(t)
		user := models.NewUser("bob", "bob@example.com", "$2a$hash")

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs("bob", "bob@example.com", "$2a$hash", "bob", nil, nil,
				"fire", "moderate", "USER", "active", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(17)))

		require.NoError(t, repo.Create(ctx, user))
		assert.Equal(t, int64(17), user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violations", func(t *testing.T) {
		tests := []struct {
			constraint string
			want       error
		}{
			{constraint: "users_username_key", want: repositories.ErrUsernameExists},
			{constraint: "users_email_key", want: repositories.ErrEmailExists},
		}

		for _, tt := range tests {
			t.Run(tt.constraint, func(t *testing.T) {
				repo, _, mock := newMockRepo(t)
				mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
					WillReturnError(&pq.Error{Code: "23505", Constraint: tt.constraint})

				err := repo.Create(ctx, models.NewUser("bob", "bob@example.com", "hash"))
				assert.ErrorIs(t, err, tt.want)
			})
		}
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		repo, _, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(errors.New("connection reset"))

		err := repo.Create(ctx, models.NewUser("bob", "bob@example.com", "hash"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, repositories.ErrUsernameExists)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestUserRepository_FindByUsername(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		repo, _, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
				int64(3), "alice", "alice@example.com", "hash", "Alice", nil, nil,
				"global", "aggressive", "ROLE_ADMIN", "active", now, now, now,
			))

		user, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(3), user.ID)
		assert.Equal(t, "Alice", user.Nickname)
		assert.Empty(t, user.Phone)
		assert.Equal(t, models.RoleAdmin, user.Role)
		assert.Equal(t, models.ThemeType("global"), user.CurrentTheme)
		require.NotNil(t, user.LastLoginAt)
		assert.True(t, user.LastLoginAt.Equal(now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, _, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(userRowColumns))

		user, err := repo.FindByUsername(ctx, "ghost")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestUserRepository_Exists(t *testing.T) {
	ctx := context.Background()
	repo, _, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE email = $1")).
		WithArgs("new@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	taken, err := repo.ExistsByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.ExistsByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.False(t, taken)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Updates(t *testing.T) {
	ctx := context.Background()

	t.Run("last login", func(t *testing.T) {
		repo, _, mock := newMockRepo(t)
		at := time.Now().UTC()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET last_login_at")).
			WithArgs(int64(5), at).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateLastLogin(ctx, 5, at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("password hash on missing user", func(t *testing.T) {
		repo, _, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash")).
			WithArgs(int64(404), "newhash", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdatePasswordHash(ctx, 404, "newhash")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("status", func(t *testing.T) {
		repo, _, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status")).
			WithArgs(int64(5), "suspended", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateStatus(ctx, 5, models.StatusSuspended))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_List(t *testing.T) {
	ctx := context.Background()
	repo, _, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY id LIMIT $1 OFFSET $2")).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(int64(1), "admin", "admin@example.com", "h", nil, nil, nil, "fire", "moderate", "ADMIN", "active", nil, now, now).
			AddRow(int64(2), "bob", "bob@example.com", "h", "bob", nil, nil, "fire", "moderate", "USER", "inactive", nil, now, now))

	users, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.True(t, users[0].IsAdmin())
	assert.Nil(t, users[0].LastLoginAt)
	assert.False(t, users[1].IsActive())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_WithTxUsesTransaction(t *testing.T) {
	repo, db, mock := newMockRepo(t)
	txMgr := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectCommit()

	err := txMgr.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
		_, err := repo.WithTx(tx).ExistsByUsername(context.Background(), "bob")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_EnsureSchema(t *testing.T) {
	_, db, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
