package handlers

import (
	"context"

	"github.com/jntm/fundtheme/models"
	"github.com/jntm/fundtheme/services"
	"github.com/stretchr/testify/mock"
)

// MockAuthenticator is a mock implementation of Authenticator and PasswordChanger
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, username, password string) (*services.AuthResult, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuthResult), args.Error(1)
}

func (m *MockAuthenticator) Register(ctx context.Context, input services.RegisterInput) (*services.AuthResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuthResult), args.Error(1)
}

func (m *MockAuthenticator) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenPair), args.Error(1)
}

func (m *MockAuthenticator) ChangePassword(ctx context.Context, actor *models.Principal, targetID int64, current, next string) error {
	return m.Called(ctx, actor, targetID, current, next).Error(0)
}

// MockUserAdministrator is a mock implementation of UserAdministrator
type MockUserAdministrator struct {
	mock.Mock
}

func (m *MockUserAdministrator) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserAdministrator) ListUsers(ctx context.Context, limit, offset int) (*services.UserPage, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.UserPage), args.Error(1)
}

func (m *MockUserAdministrator) UpdateStatus(ctx context.Context, actor *models.Principal, targetID int64, status models.UserStatus) error {
	return m.Called(ctx, actor, targetID, status).Error(0)
}
