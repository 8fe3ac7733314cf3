package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/coastwatch-systems/coastwatch/internal/httputil"
	"github.com/coastwatch-systems/coastwatch/internal/models"
)

const userKey contextKey = "user"

// UserResolver validates a bearer token and loads the user it names.
type UserResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware attaches the authenticated user to the request context.
type AuthMiddleware struct {
	resolver UserResolver
}

func NewAuthMiddleware(resolver UserResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// RequireAuth rejects requests without a valid Bearer token.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		user, err := m.resolver.ResolveToken(r.Context(), parts[1])
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated requests whose user holds none of the
// given roles. It must be wrapped inside RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil {
				httputil.WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httputil.WriteError(w, http.StatusForbidden, "forbidden")
		}))
	}
}

// GetUser returns the authenticated user from the context, or nil.
func GetUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}
