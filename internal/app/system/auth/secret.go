package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

// AdminOrSecret returns middleware that admits signed-in admins, or callers
// presenting the shared secret in header. It must run after LoadSessionUser.
//
// Usage in routes.go:
//
//	r.With(auth.AdminOrSecret(revalidate.SecretHeader, appCfg.RevalidateSecret, logger)).
//	    Post("/api/revalidate/{tag}", h.Revalidate)
//
// If the secret is not configured (empty), only admins are admitted.
func AdminOrSecret(header, secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	if secret == "" {
		logger.Warn("shared secret not configured; only admin sessions are accepted",
			zap.String("header", header))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u, ok := CurrentUser(r); ok && u.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(header)
			if secret != "" && provided != "" &&
				subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("request rejected: no admin session or valid secret",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Bool("secret_present", provided != ""))
			jsonutil.Unauthorized(w, "unauthorized")
		})
	}
}
