package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jntm/fundtheme/models"
	"github.com/jntm/fundtheme/repositories"
	"github.com/jntm/fundtheme/services/password"
	"github.com/jntm/fundtheme/services/principalcache"
	"github.com/jntm/fundtheme/tokens"
	"go.uber.org/zap"
)

// TokenType is returned to clients alongside every token pair
const TokenType = "Bearer"

// PasswordHasher hashes and verifies account passwords
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
	VerifyDummy(plain string) bool
}

// AuthConfig holds the token lifetimes and credential store bounds
type AuthConfig struct {
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	StoreTimeout time.Duration
}

// TokenPair is a freshly issued access and refresh token
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
}

// AuthResult is returned by Login and Register
type AuthResult struct {
	User   *models.User
	Tokens *TokenPair
}

// RegisterInput carries a new account's details
type RegisterInput struct {
	Username string
	Password string
	Email    string
	Nickname string
	Phone    string
}

// AuthService authenticates users, issues tokens and resolves principals
type AuthService struct {
	users     repositories.UserRepository
	txMgr     repositories.TransactionManager
	codec     *tokens.Codec
	validator *tokens.Validator
	hasher    PasswordHasher
	cache     principalcache.Cache
	logger    *zap.Logger
	cfg       AuthConfig
}

// NewAuthService creates a new AuthService. A nil cache disables caching.
func NewAuthService(
	users repositories.UserRepository,
	txMgr repositories.TransactionManager,
	codec *tokens.Codec,
	hasher PasswordHasher,
	cache principalcache.Cache,
	logger *zap.Logger,
	cfg AuthConfig,
) *AuthService {
	if cache == nil {
		cache = principalcache.Noop{}
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 2 * time.Second
	}
	return &AuthService{
		users:     users,
		txMgr:     txMgr,
		codec:     codec,
		validator: tokens.NewValidator(codec),
		hasher:    hasher,
		cache:     cache,
		logger:    logger,
		cfg:       cfg,
	}
}

// Validator returns the token validator bound to this service's codec
func (s *AuthService) Validator() *tokens.Validator {
	return s.validator
}

// Login verifies a username and password and issues a token pair.
// Unknown user and wrong password produce the same error after the same work.
func (s *AuthService) Login(ctx context.Context, username, plain string) (*AuthResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.hasher.VerifyDummy(plain)
			s.logger.Info("login failed", zap.String("reason", "unknown_user"))
			return nil, ErrInvalidCredentials
		}
		return nil, WrapInternal("failed to load user", err)
	}

	if !s.hasher.Verify(plain, user.PasswordHash) {
		s.logger.Info("login failed", zap.Int64("user_id", user.ID), zap.String("reason", "bad_password"))
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		s.logger.Info("login failed", zap.Int64("user_id", user.ID), zap.String("reason", "account_disabled"))
		return nil, ErrAccountDisabled
	}

	pair, err := s.issuePair(strconv.FormatInt(user.ID, 10), user.Username)
	if err != nil {
		return nil, err
	}

	// last-writer-wins; a failure here never fails the login
	now := s.codec.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.Int64("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	s.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Register creates an active USER account and issues a token pair
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, WrapInternal("failed to hash password", err)
	}

	user, err := WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.User, error) {
		users := s.users.WithTx(tx)

		taken, err := users.ExistsByUsername(ctx, input.Username)
		if err != nil {
			return nil, WrapInternal("failed to check username", err)
		}
		if taken {
			return nil, ErrUsernameTaken
		}

		taken, err = users.ExistsByEmail(ctx, input.Email)
		if err != nil {
			return nil, WrapInternal("failed to check email", err)
		}
		if taken {
			return nil, ErrEmailTaken
		}

		user := models.NewUser(input.Username, input.Email, hash)
		if input.Nickname != "" {
			user.Nickname = input.Nickname
		}
		user.Phone = input.Phone

		if err := users.Create(ctx, user); err != nil {
			switch {
			case errors.Is(err, repositories.ErrUsernameExists):
				return nil, ErrUsernameTaken
			case errors.Is(err, repositories.ErrEmailExists):
				return nil, ErrEmailTaken
			default:
				return nil, WrapInternal("failed to create user", err)
			}
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}

	pair, err := s.issuePair(strconv.FormatInt(user.ID, 10), user.Username)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The old
// refresh token stays valid until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	outcome := s.validator.Inspect(refreshToken, tokens.KindRefresh)
	if !outcome.OK() {
		s.logger.Info("refresh rejected", zap.Stringer("failure", outcome.Failure))
		return nil, ErrInvalidRefreshToken
	}

	pair, err := s.issuePair(outcome.Claims.Subject, outcome.Claims.Username)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	return pair, nil
}

// ResolvePrincipal loads the active principal for a token subject.
// Returns ErrPrincipalNotFound for unknown or inactive accounts and an
// unavailable error when the credential store cannot answer in time.
func (s *AuthService) ResolvePrincipal(ctx context.Context, subject string) (*models.Principal, error) {
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil, ErrPrincipalNotFound
	}

	cached, err := s.cacheGet(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, principalcache.ErrMiss) {
		s.logger.Warn("principal cache lookup failed", zap.Int64("user_id", userID), zap.Error(err))
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	user, err := s.users.FindByID(storeCtx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, WrapUnavailable(ErrCredentialStoreUnavailable.Message, err)
	}

	if !user.IsActive() {
		s.evict(ctx, userID)
		return nil, ErrPrincipalNotFound
	}

	principal := user.Principal()
	cacheCtx, cancelCache := s.cacheContext(ctx)
	defer cancelCache()
	if err := s.cache.Set(cacheCtx, principal); err != nil {
		s.logger.Warn("principal cache store failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return principal, nil
}

// cacheContext bounds a cache call to a quarter of the store budget so a
// slow cache never starves the store lookup
func (s *AuthService) cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout/4)
}

func (s *AuthService) cacheGet(ctx context.Context, userID int64) (*models.Principal, error) {
	ctx, cancel := s.cacheContext(ctx)
	defer cancel()
	return s.cache.Get(ctx, userID)
}

// ChangePassword replaces a user's password. Users must supply their current
// password; an admin resetting someone else's password does not.
func (s *AuthService) ChangePassword(ctx context.Context, actor *models.Principal, targetID int64, current, next string) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if !actor.CanAccessUser(targetID) {
		return ErrForbidden
	}

	user, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return WrapInternal("failed to load user", err)
	}

	if actor.ID == targetID || !actor.IsAdmin() {
		if !s.hasher.Verify(current, user.PasswordHash) {
			return ErrCurrentPasswordWrong
		}
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return ErrPasswordTooLong
		}
		return WrapInternal("failed to hash password", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, targetID, hash); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return WrapInternal("failed to update password", err)
	}

	s.evict(ctx, targetID)
	s.logger.Info("password changed", zap.Int64("user_id", targetID), zap.Int64("actor_id", actor.ID))
	return nil
}

// EnsureAdmin creates an ADMIN account unless the username already exists
func (s *AuthService) EnsureAdmin(ctx context.Context, username, plain, email string) (bool, error) {
	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return false, WrapInternal("failed to look up admin", err)
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return false, WrapInternal("failed to hash admin password", err)
	}

	user := models.NewUser(username, email, hash)
	user.Role = models.RoleAdmin
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUsernameExists) {
			return false, nil
		}
		return false, WrapInternal("failed to create admin", err)
	}

	s.logger.Info("bootstrap admin created", zap.Int64("user_id", user.ID), zap.String("username", username))
	return true, nil
}

func (s *AuthService) issuePair(subject, username string) (*TokenPair, error) {
	access, err := s.codec.Issue(subject, username, tokens.KindAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, WrapError(ErrorTypeInternal, ErrTokenIssueFailed.Message, err)
	}
	refresh, err := s.codec.Issue(subject, username, tokens.KindRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return nil, WrapError(ErrorTypeInternal, ErrTokenIssueFailed.Message, err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenType,
		ExpiresIn:    s.cfg.AccessTTL,
	}, nil
}

func (s *AuthService) evict(ctx context.Context, userID int64) {
	ctx, cancel := s.cacheContext(ctx)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("principal cache eviction failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
