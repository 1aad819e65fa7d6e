package auth

import (
	"context"
	"net/http"
	"strings"
)

type authUserKey struct{}

// UserFromContext returns the authenticated claims, or nil on an
// unauthenticated request.
func UserFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(authUserKey{}).(*Claims)
	return c
}

// Endpoints reachable without a token.
var publicPaths = map[string]bool{
	"/api/v1/auth/login":        true,
	"/api/v1/auth/refresh":      true,
	"/api/v1/auth/logout":       true,
	"/api/v1/auth/setup":        true,
	"/api/v1/auth/setup/status": true,
}

// skipAuth reports whether the path is outside bearer-token enforcement:
// non-API paths (probes, metrics), the WebSocket endpoint (which
// authenticates via query parameter), and the public auth endpoints.
func skipAuth(path string) bool {
	if !strings.HasPrefix(path, "/api/") {
		return true
	}
	if strings.HasPrefix(path, "/api/v1/ws/") {
		return true
	}
	return publicPaths[path]
}

// bearerToken extracts the token from the Authorization header, or ""
// when the header is absent or not a Bearer scheme.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return token
}

// AuthMiddleware validates access tokens on API routes, stores the claims
// in the request context, and enforces the coach role's read-only access
// across the whole API.
func AuthMiddleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipAuth(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			claims, err := tokens.ValidateAccessToken(token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired access token")
				return
			}

			if r.Method != http.MethodGet && !Role(claims.Role).CanWrite() {
				writeAuthError(w, http.StatusForbidden, "role does not permit modifications")
				return
			}

			ctx := context.WithValue(r.Context(), authUserKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
