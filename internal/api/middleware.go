package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/terra-clan/studyhub/internal/authz"
	"github.com/terra-clan/studyhub/internal/marketplace"
)

// AuthMiddleware resolves bearer tokens and enforces the access policy
type AuthMiddleware struct {
	svc    *marketplace.Service
	logger *slog.Logger
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(svc *marketplace.Service) *AuthMiddleware {
	return &AuthMiddleware{svc: svc, logger: slog.With("component", "auth")}
}

// Authenticate attaches the user of a bearer token to the request.
// Requests without a token continue anonymously; invalid tokens are rejected.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, session, err := m.svc.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, marketplace.ErrUnauthorized) {
				m.logger.Debug("rejected token", "error", err, "remote_addr", r.RemoteAddr)
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			m.logger.Error("failed to authenticate request", "error", err)
			respondError(w, http.StatusInternalServerError, "internal_error", "authentication error")
			return
		}

		ctx := ContextWithUser(r.Context(), user, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects anonymous requests
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", authz.ReasonAuthRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission returns middleware that checks the role policy for an action.
// Ownership of the target resource is checked later by the service.
func (m *AuthMiddleware) RequirePermission(action authz.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			decision := m.svc.Guard().Authorize(user, action, nil)
			if !decision.Allowed {
				if user == nil {
					respondError(w, http.StatusUnauthorized, "unauthorized", decision.Reason)
					return
				}
				m.logger.Warn("permission denied",
					"user_id", user.ID,
					"role", user.Role,
					"required", action.String(),
				)
				respondError(w, http.StatusForbidden, "forbidden", decision.Reason)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken extracts the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
