package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jntm/fundtheme/middleware"
	"github.com/jntm/fundtheme/models"
	"github.com/jntm/fundtheme/services"
	"github.com/jntm/fundtheme/utils"
	"go.uber.org/zap"
)

// Authenticator is the subset of the auth service used by AuthHandler
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*services.AuthResult, error)
	Register(ctx context.Context, input services.RegisterInput) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

// UserReader loads account records
type UserReader interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// AuthHandler handles login, registration and token endpoints
type AuthHandler struct {
	auth   Authenticator
	users  UserReader
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth Authenticator, users UserReader, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		users:  users,
		logger: logger,
	}
}

// HandleLogin handles POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req LoginRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	result, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		if services.IsInvalidCredentialsError(err) {
			h.logger.Info("login rejected",
				zap.String("request_id", requestID),
				zap.String("username", req.Username),
				zap.String("reason", services.GetErrorMessage(err)))
			_ = utils.WriteBadRequest(w, services.ErrInvalidCredentials.Message, nil)
			return
		}
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("login succeeded",
		zap.String("request_id", requestID),
		zap.Int64("user_id", result.User.ID))

	_ = utils.WriteOK(w, authResultToResponse(result))
}

// HandleRegister handles POST /api/v1/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	result, err := h.auth.Register(ctx, services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Nickname: req.Nickname,
		Phone:    req.Phone,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, authResultToResponse(result))
}

// HandleRefresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, tokensToResponse(pair))
}

// HandleVerify handles GET /api/v1/auth/verify. Reaching it means the access
// token was accepted.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	_ = utils.WriteOK(w, principalToResponse(principal))
}

// HandleMe handles GET /api/v1/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := middleware.PrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	user, err := h.users.GetUser(ctx, principal.ID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, userToResponse(user))
}

// HandleLogout handles POST /api/v1/auth/logout. Tokens are stateless, so the
// client discards them; the server only acknowledges.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, MessageResponse{Message: "Logged out"})
}

// decodeAndValidate reads and validates a JSON body, writing the 400 response
// itself when the body is unusable
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return false
	}

	if n, ok := dst.(interface{ normalize() }); ok {
		n.normalize()
	}

	if err := utils.ValidateStruct(dst); err != nil {
		logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}
