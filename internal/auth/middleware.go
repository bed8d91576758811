package auth

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/noah-isme/parkconnect-api/internal/common"
)

// Middleware guards staff routes.
type Middleware struct {
	Service *Service
}

// RequireRole admits requests carrying a valid bearer token whose role is one
// of roles. The staff member is stored on the request context.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.Service == nil {
				common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
				return
			}
			token := bearerToken(r)
			if token == "" {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			staff, err := m.Service.ParseAccessToken(token)
			if err != nil {
				var appErr *common.AppError
				if errors.As(err, &appErr) {
					common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, nil)
					return
				}
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, staff.Role) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(common.WithStaff(r.Context(), staff)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
