package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type ctxKey int

const ownerKey ctxKey = iota

// DefaultOwner is the owner attributed to all requests when no auth tokens
// are configured (single-user mode).
const DefaultOwner = "local"

// OwnerFromContext returns the owner id the auth middleware resolved for
// this request.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

// withOwner returns a context carrying the resolved owner id.
func withOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// AuthMiddleware resolves the request owner from a Bearer token. tokens maps
// token values to owner ids. With an empty map, auth is disabled and every
// request runs as DefaultOwner. GET /v1/health is always exempt.
func AuthMiddleware(tokens map[string]string, next http.Handler) http.Handler {
	if len(tokens) == 0 {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(withOwner(r.Context(), DefaultOwner)))
		})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Exempt health check.
		if r.Method == http.MethodGet && r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "invalid authorization scheme")
			return
		}

		provided := strings.TrimPrefix(auth, "Bearer ")

		// Compare against every configured token so lookup time does not
		// depend on which token matched.
		var owner string
		matched := false
		for token, o := range tokens {
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) == 1 {
				owner = o
				matched = true
			}
		}
		if !matched {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withOwner(r.Context(), owner)))
	})
}
