package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/praisehq/praise/internal/rbac"
	"github.com/praisehq/praise/internal/shared"
)

// Middleware resolves the Authorization bearer token into an Identity on the
// request context. Requests without a token pass through anonymously; route
// guards decide whether that is acceptable.
func Middleware(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := service.ResolveToken(r.Context(), token)
			if err != nil {
				if logger != nil {
					logger.Debug("token rejected", slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			identity := &shared.Identity{
				UserID:      user.ID,
				Username:    user.Username,
				Roles:       user.Roles,
				Permissions: rbac.PermissionsForRoles(user.Roles),
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
