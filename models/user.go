package models

import (
	"strings"
	"time"
)

// UserRole represents the authorization role of an account
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// ParseUserRole normalizes a stored or configured role value.
// Unknown values fall back to RoleUser so they never gain admin rights.
func ParseUserRole(s string) UserRole {
	switch strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), "ROLE_")) {
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleUser
	}
}

// UserStatus represents the lifecycle state of an account
type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusInactive  UserStatus = "inactive"
	StatusSuspended UserStatus = "suspended"
	StatusDeleted   UserStatus = "deleted"
)

// IsValid reports whether s is a known status
func (s UserStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusDeleted:
		return true
	}
	return false
}

// ThemeType is the investment theme a user follows
type ThemeType string

const (
	ThemeFire      ThemeType = "fire"
	ThemeGlobal    ThemeType = "global"
	ThemeInflation ThemeType = "inflation"
)

// RiskTolerance is the self-declared risk profile of a user
type RiskTolerance string

const (
	RiskConservative RiskTolerance = "conservative"
	RiskModerate     RiskTolerance = "moderate"
	RiskAggressive   RiskTolerance = "aggressive"
)

// User is the credential record of an account. The auth core reads it and only
// writes the password hash, the last-login timestamp and new registrations.
type User struct {
	ID            int64         `json:"id" db:"id"`
	Username      string        `json:"username" db:"username"`
	Email         string        `json:"email" db:"email"`
	PasswordHash  string        `json:"-" db:"password_hash"`
	Nickname      string        `json:"nickname,omitempty" db:"nickname"`
	Phone         string        `json:"phone,omitempty" db:"phone"`
	AvatarURL     string        `json:"avatarUrl,omitempty" db:"avatar_url"`
	CurrentTheme  ThemeType     `json:"currentTheme" db:"current_theme"`
	RiskTolerance RiskTolerance `json:"riskTolerance" db:"risk_tolerance"`
	Role          UserRole      `json:"role" db:"role"`
	Status        UserStatus    `json:"status" db:"status"`
	LastLoginAt   *time.Time    `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates an active USER account with the registration defaults
func NewUser(username, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Username:      username,
		Email:         email,
		PasswordHash:  passwordHash,
		Nickname:      username,
		CurrentTheme:  ThemeFire,
		RiskTolerance: RiskModerate,
		Role:          RoleUser,
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsActive returns true if the account may authenticate
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Principal builds the request-scoped identity for this record
func (u *User) Principal() *Principal {
	return &Principal{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		Active:   u.IsActive(),
	}
}
