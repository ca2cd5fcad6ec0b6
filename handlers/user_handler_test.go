package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jntm/fundtheme/middleware"
	"github.com/jntm/fundtheme/models"
	"github.com/jntm/fundtheme/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func userRouter(h *UserHandler, actor *models.Principal) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if actor != nil {
				req = req.WithContext(middleware.WithPrincipal(req.Context(), actor))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/users/{id}", h.HandleGetUser)
	r.Put("/users/{id}/password", h.HandleChangePassword)
	r.Get("/admin/users", h.HandleListUsers)
	r.Put("/admin/users/{id}/status", h.HandleUpdateStatus)
	return r
}

func TestHandleGetUser(t *testing.T) {
	user := sampleResult().User

	t.Run("found", func(t *testing.T) {
		users := new(MockUserAdministrator)
		users.On("GetUser", mock.Anything, int64(7)).Return(user, nil)
		router := userRouter(NewUserHandler(users, nil, zap.NewNop()), nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/7", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice", decodeData(t, w)["username"])
	})

	t.Run("not found", func(t *testing.T) {
		users := new(MockUserAdministrator)
		users.On("GetUser", mock.Anything, int64(8)).Return(nil, services.ErrUserNotFound)
		router := userRouter(NewUserHandler(users, nil, zap.NewNop()), nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/8", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		users := new(MockUserAdministrator)
		router := userRouter(NewUserHandler(users, nil, zap.NewNop()), nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/abc", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		users.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})
}

func TestHandleChangePassword(t *testing.T) {
	actor := &models.Principal{ID: 7, Username: "alice", Role: models.RoleUser, Active: true}

	t.Run("success", func(t *testing.T) {
		pw := new(MockAuthenticator)
		pw.On("ChangePassword", mock.Anything, actor, int64(7), "secret1", "secret2").Return(nil)
		router := userRouter(NewUserHandler(new(MockUserAdministrator), pw, zap.NewNop()), actor)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPut, "/users/7/password",
			ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2"}))

		assert.Equal(t, http.StatusOK, w.Code)
		pw.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		pw := new(MockAuthenticator)
		pw.On("ChangePassword", mock.Anything, actor, int64(7), "nope12", "secret2").Return(services.ErrCurrentPasswordWrong)
		router := userRouter(NewUserHandler(new(MockUserAdministrator), pw, zap.NewNop()), actor)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPut, "/users/7/password",
			ChangePasswordRequest{CurrentPassword: "nope12", NewPassword: "secret2"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("forbidden for another user", func(t *testing.T) {
		pw := new(MockAuthenticator)
		pw.On("ChangePassword", mock.Anything, actor, int64(9), "secret1", "secret2").Return(services.ErrForbidden)
		router := userRouter(NewUserHandler(new(MockUserAdministrator), pw, zap.NewNop()), actor)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPut, "/users/9/password",
			ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2"}))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("new password too short", func(t *testing.T) {
		pw := new(MockAuthenticator)
		router := userRouter(NewUserHandler(new(MockUserAdministrator), pw, zap.NewNop()), actor)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPut, "/users/7/password",
			ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "123"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Details, "newPassword")
	})
}

func TestHandleListUsers(t *testing.T) {
	admin := &models.Principal{ID: 1, Username: "admin", Role: models.RoleAdmin, Active: true}

	t.Run("passes paging through", func(t *testing.T) {
		users := new(MockUserAdministrator)
		users.On("ListUsers", mock.Anything, 10, 20).Return(&services.UserPage{
			Users: []*models.User{sampleResult().User}, Total: 21, Limit: 10, Offset: 20,
		}, nil)
		router := userRouter(NewUserHandler(users, nil, zap.NewNop()), admin)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/users?limit=10&offset=20", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, float64(21), data["total"])
		assert.Len(t, data["users"], 1)
	})

	t.Run("defaults when absent", func(t *testing.T) {
		users := new(MockUserAdministrator)
		users.On("ListUsers", mock.Anything, 0, 0).Return(&services.UserPage{Limit: 20}, nil)
		router := userRouter(NewUserHandler(users, nil, zap.NewNop()), admin)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/users", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decodeData(t, w)["users"])
	})

	t.Run("invalid limit", func(t *testing.T) {
		router := userRouter(NewUserHandler(new(MockUserAdministrator), nil, zap.NewNop()), admin)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/users?limit=ten", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleUpdateStatus(t *testing.T) {
	admin := &models.Principal{ID: 1, Username: "admin", Role: models.RoleAdmin, Active: true}

	t.Run("success", func(t *testing.T) {
		users := new(MockUserAdministrator)
		users.On("UpdateStatus", mock.Anything, admin, int64(7), models.StatusInactive).Return(nil)
		router := userRouter(NewUserHandler(users, nil, zap.NewNop()), admin)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPut, "/admin/users/7/status", UpdateStatusRequest{Status: "inactive"}))

		assert.Equal(t, http.StatusOK, w.Code)
		users.AssertExpectations(t)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		users := new(MockUserAdministrator)
		router := userRouter(NewUserHandler(users, nil, zap.NewNop()), admin)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPut, "/admin/users/7/status", UpdateStatusRequest{Status: "banned"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		users.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
