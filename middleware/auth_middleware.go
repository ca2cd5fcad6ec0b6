package middleware

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jntm/fundtheme/internal/auth"
	"github.com/jntm/fundtheme/models"
	"github.com/jntm/fundtheme/services"
	"github.com/jntm/fundtheme/tokens"
	"github.com/jntm/fundtheme/utils"
	"go.uber.org/zap"
)

// TokenInspector checks a raw token for a given use
type TokenInspector interface {
	Inspect(token string, want tokens.Kind) tokens.Outcome
}

// PrincipalResolver loads the current principal for a token subject
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, subject string) (*models.Principal, error)
}

// AuthMiddleware authenticates bearer tokens and enforces the access policy
type AuthMiddleware struct {
	validator TokenInspector
	resolver  PrincipalResolver
	policy    *auth.AccessPolicy
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenInspector, resolver PrincipalResolver, policy *auth.AccessPolicy, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		resolver:  resolver,
		policy:    policy,
		logger:    logger,
	}
}

// Authenticate attaches the principal of a valid access token to the request
// context. Missing or unusable credentials leave the request anonymous; the
// decision to reject it belongs to Authorize. A credential store failure
// stops the request with 503.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.policy.IsPublic(decisionPath(r)) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		outcome := m.validator.Inspect(token, tokens.KindAccess)
		if !outcome.OK() {
			m.logger.Debug("token rejected",
				zap.String("request_id", requestID),
				zap.Stringer("failure", outcome.Failure))
			next.ServeHTTP(w, r)
			return
		}

		principal, err := m.resolver.ResolvePrincipal(ctx, outcome.Claims.Subject)
		if err != nil {
			if !services.IsNotFoundError(err) {
				m.logger.Error("failed to resolve principal",
					zap.String("request_id", requestID),
					zap.String("sub", outcome.Claims.Subject),
					zap.Error(err))
				_ = utils.WriteServiceUnavailable(w, "")
				return
			}
			m.logger.Debug("principal not resolvable",
				zap.String("request_id", requestID),
				zap.String("sub", outcome.Claims.Subject))
			next.ServeHTTP(w, r)
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.Int64("user_id", principal.ID))

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// Authorize applies the access policy to the request path and the principal
// attached by Authenticate
func (m *AuthMiddleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		principal := PrincipalFromContext(ctx)

		reqPath := decisionPath(r)

		switch decision := m.policy.Decide(reqPath, principal); decision {
		case auth.Allow:
			next.ServeHTTP(w, r)
		case auth.DenyUnauthenticated:
			_ = utils.WriteUnauthorized(w, "Authentication required")
		default:
			m.logger.Warn("access denied",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.String("path", reqPath),
				zap.Int64("user_id", principal.ID),
				zap.String("role", string(principal.Role)))
			_ = utils.WriteForbidden(w, "Insufficient permissions")
		}
	})
}

// decisionPath returns the path the router will match, so that access
// decisions and routing never disagree about dot segments or escapes
func decisionPath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath != "" {
		return rctx.RoutePath
	}
	p := r.URL.RawPath
	if p == "" {
		p = r.URL.Path
	}
	return path.Clean("/" + p)
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
