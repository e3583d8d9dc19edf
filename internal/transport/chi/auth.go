package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/kailas-cloud/regassist/internal/domain"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

const bearerPrefix = "Bearer "

// keyRing holds the accepted tokens. Lookups compare every key in constant time.
type keyRing [][]byte

func keySet(keys []string) keyRing {
	ring := make(keyRing, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			ring = append(ring, []byte(k))
		}
	}
	return ring
}

func (k keyRing) contains(token string) bool {
	found := 0
	for _, key := range k {
		found |= subtle.ConstantTimeCompare(key, []byte(token))
	}
	return found == 1
}

// bearerToken returns the token of an "Authorization: Bearer" header and a client-facing reason when absent.
func bearerToken(r *http.Request) (string, string) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(auth, bearerPrefix) {
		return "", "authorization header must use Bearer scheme"
	}
	return auth[len(bearerPrefix):], ""
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// If apiKeys is empty, authentication is disabled (pass-through).
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := keySet(apiKeys)

	return func(next http.Handler) http.Handler {
		// Auth disabled — pass everything through
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, reason := bearerToken(r)
			if reason != "" {
				writeError(w, http.StatusUnauthorized, reason)
				return
			}
			if !validKeys.contains(token) {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly rejects callers whose role header is not admin.
// When adminKeys is set, the bearer token must also be one of them.
func AdminOnly(adminKeys []string) func(http.Handler) http.Handler {
	validKeys := keySet(adminKeys)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IdentityFromContext(r.Context()).Role != domain.RoleAdmin {
				writeError(w, http.StatusForbidden, "Accès réservé aux administrateurs")
				return
			}
			if len(validKeys) > 0 {
				token, _ := bearerToken(r)
				if !validKeys.contains(token) {
					writeError(w, http.StatusForbidden, "Accès réservé aux administrateurs")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
