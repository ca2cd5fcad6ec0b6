package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jntm/fundtheme/internal/auth"
	"github.com/jntm/fundtheme/models"
	"github.com/jntm/fundtheme/services"
	"github.com/jntm/fundtheme/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPrincipalResolver is a mock implementation of PrincipalResolver
type MockPrincipalResolver struct {
	mock.Mock
}

func (m *MockPrincipalResolver) ResolvePrincipal(ctx context.Context, subject string) (*models.Principal, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Principal), args.Error(1)
}

type middlewareFixture struct {
	codec     *tokens.Codec
	resolver  *MockPrincipalResolver
	mw        *AuthMiddleware
	reached   bool
	principal *models.Principal
}

func newMiddlewareFixture(t *testing.T) *middlewareFixture {
	t.Helper()

	codec, err := tokens.NewCodec([]byte(strings.Repeat("s", 64)))
	require.NoError(t, err)
	policy, err := auth.NewAccessPolicy(auth.DefaultRules())
	require.NoError(t, err)

	f := &middlewareFixture{codec: codec, resolver: new(MockPrincipalResolver)}
	f.mw = NewAuthMiddleware(tokens.NewValidator(codec), f.resolver, policy, zap.NewNop())
	return f
}

func (f *middlewareFixture) handler() http.Handler {
	return f.mw.Authenticate(f.mw.Authorize(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.reached = true
		f.principal = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})))
}

func (f *middlewareFixture) token(t *testing.T, subject string, kind tokens.Kind) string {
	t.Helper()
	tok, err := f.codec.Issue(subject, "user"+subject, kind, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *middlewareFixture) do(method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	f.handler().ServeHTTP(w, req)
	return w
}

func TestAuthenticate_PublicPathSkipsTokenLogic(t *testing.T) {
	f := newMiddlewareFixture(t)

	w := f.do(http.MethodPost, "/api/v1/auth/login", "Bearer garbage")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.reached)
	assert.Nil(t, f.principal)
	f.resolver.AssertNotCalled(t, "ResolvePrincipal", mock.Anything, mock.Anything)
}

func TestAuthenticate_ValidTokenAttachesPrincipal(t *testing.T) {
	f := newMiddlewareFixture(t)
	alice := &models.Principal{ID: 7, Username: "alice", Role: models.RoleUser, Active: true}
	f.resolver.On("ResolvePrincipal", mock.Anything, "7").Return(alice, nil)

	w := f.do(http.MethodGet, "/api/v1/auth/me", "bearer "+f.token(t, "7", tokens.KindAccess))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, f.principal)
	assert.Equal(t, int64(7), f.principal.ID)
	f.resolver.AssertExpectations(t)
}

func TestAuthenticate_AnonymousCases(t *testing.T) {
	tests := []struct {
		name   string
		header func(f *middlewareFixture, t *testing.T) string
	}{
		{"missing header", func(*middlewareFixture, *testing.T) string { return "" }},
		{"wrong scheme", func(f *middlewareFixture, t *testing.T) string {
			return "Basic " + f.token(t, "7", tokens.KindAccess)
		}},
		{"scheme only", func(*middlewareFixture, *testing.T) string { return "Bearer" }},
		{"garbage token", func(*middlewareFixture, *testing.T) string { return "Bearer not.a.token" }},
		{"refresh token", func(f *middlewareFixture, t *testing.T) string {
			return "Bearer " + f.token(t, "7", tokens.KindRefresh)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMiddlewareFixture(t)

			w := f.do(http.MethodGet, "/api/v1/auth/me", tt.header(f, t))

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, f.reached)
			f.resolver.AssertNotCalled(t, "ResolvePrincipal", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthenticate_PrincipalNotFoundIsAnonymous(t *testing.T) {
	f := newMiddlewareFixture(t)
	f.resolver.On("ResolvePrincipal", mock.Anything, "9").Return(nil, services.ErrPrincipalNotFound)

	w := f.do(http.MethodGet, "/api/v1/auth/me", "Bearer "+f.token(t, "9", tokens.KindAccess))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, f.reached)
}

func TestAuthenticate_StoreFailureFailsClosed(t *testing.T) {
	for name, resolveErr := range map[string]error{
		"unavailable": services.WrapUnavailable("credential store unavailable", errors.New("dial tcp: refused")),
		"unexpected":  errors.New("boom"),
	} {
		t.Run(name, func(t *testing.T) {
			f := newMiddlewareFixture(t)
			f.resolver.On("ResolvePrincipal", mock.Anything, "7").Return(nil, resolveErr)

			w := f.do(http.MethodGet, "/api/v1/auth/me", "Bearer "+f.token(t, "7", tokens.KindAccess))

			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.False(t, f.reached)
			assert.NotContains(t, w.Body.String(), "dial tcp")
		})
	}
}

func TestAuthorize_AdminPath(t *testing.T) {
	tests := []struct {
		name   string
		role   models.UserRole
		status int
	}{
		{"user is forbidden", models.RoleUser, http.StatusForbidden},
		{"admin is allowed", models.RoleAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMiddlewareFixture(t)
			f.resolver.On("ResolvePrincipal", mock.Anything, "3").
				Return(&models.Principal{ID: 3, Username: "u", Role: tt.role, Active: true}, nil)

			w := f.do(http.MethodGet, "/api/v1/admin/users", "Bearer "+f.token(t, "3", tokens.KindAccess))

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAuthorize_OwnerPath(t *testing.T) {
	f := newMiddlewareFixture(t)
	f.resolver.On("ResolvePrincipal", mock.Anything, "3").
		Return(&models.Principal{ID: 3, Username: "u", Role: models.RoleUser, Active: true}, nil)
	tok := "Bearer " + f.token(t, "3", tokens.KindAccess)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/users/3", tok).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/v1/users/4", tok).Code)
}

func TestAuthorize_DotSegmentsCannotReachAdminPath(t *testing.T) {
	f := newMiddlewareFixture(t)
	f.resolver.On("ResolvePrincipal", mock.Anything, "3").
		Return(&models.Principal{ID: 3, Username: "u", Role: models.RoleUser, Active: true}, nil)

	w := f.do(http.MethodGet, "/api/v1/auth/login/../../admin/users", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/v1/auth/login/../../admin/users", "Bearer "+f.token(t, "3", tokens.KindAccess))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, f.reached)
}

func TestDecisionPath(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/api/v1/users/3", "/api/v1/users/3"},
		{"/api/v1/users/3/../4", "/api/v1/users/4"},
		{"//api//v1/admin/users", "/api/v1/admin/users"},
		{"/api/v1/%61dmin/users", "/api/v1/%61dmin/users"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, decisionPath(httptest.NewRequest(http.MethodGet, tt.target, nil)))
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"BEARER  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractBearerToken(req))
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, PrincipalFromContext(ctx))

	p := &models.Principal{ID: 1}
	assert.Same(t, p, PrincipalFromContext(WithPrincipal(ctx, p)))
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestIDFromContext(ctx))
	assert.Equal(t, "req-1", GetRequestIDFromContext(WithRequestID(ctx, "req-1")))
}
