package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jntm/fundtheme/middleware"
	"github.com/jntm/fundtheme/models"
	"github.com/jntm/fundtheme/services"
	"github.com/jntm/fundtheme/utils"
	"go.uber.org/zap"
)

// PasswordChanger changes account passwords on behalf of a principal
type PasswordChanger interface {
	ChangePassword(ctx context.Context, actor *models.Principal, targetID int64, current, next string) error
}

// UserAdministrator serves the admin account operations
type UserAdministrator interface {
	UserReader
	ListUsers(ctx context.Context, limit, offset int) (*services.UserPage, error)
	UpdateStatus(ctx context.Context, actor *models.Principal, targetID int64, status models.UserStatus) error
}

// UserHandler handles account endpoints for owners and admins
type UserHandler struct {
	users     UserAdministrator
	passwords PasswordChanger
	logger    *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserAdministrator, passwords PasswordChanger, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// HandleGetUser handles GET /api/v1/users/{id}
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, userToResponse(user))
}

// HandleChangePassword handles PUT /api/v1/users/{id}/password
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	actor := middleware.PrincipalFromContext(ctx)
	if err := h.passwords.ChangePassword(ctx, actor, id, req.CurrentPassword, req.NewPassword); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("password changed",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.Int64("user_id", id))

	_ = utils.WriteOK(w, MessageResponse{Message: "Password updated"})
}

// HandleListUsers handles GET /api/v1/admin/users
func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := queryInt(query.Get("limit"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid limit", nil)
		return
	}
	offset, err := queryInt(query.Get("offset"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid offset", nil)
		return
	}

	page, err := h.users.ListUsers(r.Context(), limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]UserResponse, len(page.Users))
	for i, u := range page.Users {
		responses[i] = userToResponse(u)
	}

	_ = utils.WriteOK(w, UserListResponse{
		Users:  responses,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// HandleUpdateStatus handles PUT /api/v1/admin/users/{id}/status
func (h *UserHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	actor := middleware.PrincipalFromContext(ctx)
	if err := h.users.UpdateStatus(ctx, actor, id, models.UserStatus(req.Status)); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("user status updated",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.Int64("user_id", id),
		zap.String("status", req.Status))

	_ = utils.WriteOK(w, MessageResponse{Message: "Status updated"})
}

func (h *UserHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid user ID", nil)
		return 0, false
	}
	return id, true
}

func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
