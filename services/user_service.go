package services

import (
	"context"
	"errors"

	"github.com/jntm/fundtheme/models"
	"github.com/jntm/fundtheme/repositories"
	"github.com/jntm/fundtheme/services/principalcache"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UserPage is one page of the admin user listing
type UserPage struct {
	Users  []*models.User
	Total  int64
	Limit  int
	Offset int
}

// UserService serves account lookups and the admin account operations
type UserService struct {
	users  repositories.UserRepository
	cache  principalcache.Cache
	logger *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(users repositories.UserRepository, cache principalcache.Cache, logger *zap.Logger) *UserService {
	if cache == nil {
		cache = principalcache.Noop{}
	}
	return &UserService{
		users:  users,
		cache:  cache,
		logger: logger,
	}
}

// GetUser returns the account with the given ID
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, WrapInternal("failed to load user", err)
	}
	return user, nil
}

// ListUsers returns a page of accounts ordered by ID
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) (*UserPage, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, WrapInternal("failed to list users", err)
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, WrapInternal("failed to count users", err)
	}

	return &UserPage{Users: users, Total: total, Limit: limit, Offset: offset}, nil
}

// UpdateStatus enables or disables an account. Admins cannot change their own status.
func (s *UserService) UpdateStatus(ctx context.Context, actor *models.Principal, targetID int64, status models.UserStatus) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	if actor.ID == targetID {
		return NewDomainError(ErrorTypeValidation, "cannot change own account status", nil)
	}

	if err := s.users.UpdateStatus(ctx, targetID, status); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return WrapInternal("failed to update status", err)
	}

	if err := s.cache.Delete(ctx, targetID); err != nil {
		s.logger.Warn("principal cache eviction failed", zap.Int64("user_id", targetID), zap.Error(err))
	}

	s.logger.Info("account status changed",
		zap.Int64("user_id", targetID),
		zap.String("status", string(status)),
		zap.Int64("actor_id", actor.ID),
	)
	return nil
}
