package handlers

import (
	"strings"
	"time"

	"github.com/jntm/fundtheme/models"
	"github.com/jntm/fundtheme/services"
)

// LoginRequest is the body of POST /api/v1/auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

// RegisterRequest is the body of POST /api/v1/auth/register
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Nickname string `json:"nickname,omitempty" validate:"omitempty,max=50"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

// normalize trims the text fields so length rules apply to what is stored
func (r *RegisterRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	r.Nickname = strings.TrimSpace(r.Nickname)
	r.Phone = strings.TrimSpace(r.Phone)
}

// RefreshRequest is the body of POST /api/v1/auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ChangePasswordRequest is the body of PUT /api/v1/users/{id}/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword,omitempty" validate:"omitempty,max=72"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

// UpdateStatusRequest is the body of PUT /api/v1/admin/users/{id}/status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended deleted"`
}

// TokenResponse carries a freshly issued token pair
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	// ExpiresIn is the access token lifetime in milliseconds
	ExpiresIn int64 `json:"expiresIn"`
}

// AuthResponse is returned by login and registration
type AuthResponse struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Nickname    string     `json:"nickname"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	TokenResponse
}

// PrincipalResponse describes the authenticated caller
type PrincipalResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Nickname      string     `json:"nickname"`
	Phone         string     `json:"phone,omitempty"`
	AvatarURL     string     `json:"avatarUrl,omitempty"`
	CurrentTheme  string     `json:"currentTheme"`
	RiskTolerance string     `json:"riskTolerance"`
	Role          string     `json:"role"`
	Status        string     `json:"status"`
	IsActive      bool       `json:"isActive"`
	LastLoginAt   *time.Time `json:"lastLoginAt"`
	CreatedAt     string     `json:"createdAt"`
	UpdatedAt     string     `json:"updatedAt"`
}

// UserListResponse is a page of users
type UserListResponse struct {
	Users  []UserResponse `json:"users"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

func tokensToResponse(pair *services.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn.Milliseconds(),
	}
}

func authResultToResponse(res *services.AuthResult) AuthResponse {
	u := res.User
	return AuthResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Nickname:      u.Nickname,
		Role:          string(u.Role),
		IsActive:      u.IsActive(),
		LastLoginAt:   u.LastLoginAt,
		TokenResponse: tokensToResponse(res.Tokens),
	}
}

func principalToResponse(p *models.Principal) PrincipalResponse {
	return PrincipalResponse{
		ID:       p.ID,
		Username: p.Username,
		Role:     string(p.Role),
		IsActive: p.Active,
	}
}

func userToResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Nickname:      u.Nickname,
		Phone:         u.Phone,
		AvatarURL:     u.AvatarURL,
		CurrentTheme:  string(u.CurrentTheme),
		RiskTolerance: string(u.RiskTolerance),
		Role:          string(u.Role),
		Status:        string(u.Status),
		IsActive:      u.IsActive(),
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     u.UpdatedAt.Format(time.RFC3339),
	}
}
