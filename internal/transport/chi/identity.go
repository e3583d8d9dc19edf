package chi

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/domain"
	"github.com/kailas-cloud/regassist/internal/logger"
)

// Identity headers set by the upstream authentication layer.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Identity is the caller as asserted by the upstream authentication layer.
// An empty UserID is an anonymous caller.
type Identity struct {
	UserID string
	Role   domain.Role
}

type identityKey struct{}

// IdentityMiddleware reads the identity headers into the request context and the request logger.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role:   domain.ParseRole(r.Header.Get(HeaderUserRole)),
		}
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		ctx = logger.With(ctx, zap.String("user_id", id.UserID), zap.String("role", string(id.Role)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the caller, anonymous free tier when the middleware did not run.
func IdentityFromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Identity{Role: domain.RoleFree}
}
