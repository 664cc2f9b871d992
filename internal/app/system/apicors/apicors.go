// Package apicors provides CORS middleware for endpoints called without
// cookies: the public storefront reads and the revalidate webhook, which
// authenticates with a shared-secret header instead of a session.
//
// Usage in routes.go:
//
//	r.Route("/api/revalidate", func(r chi.Router) {
//	    r.Use(apicors.Middleware(revalidate.SecretHeader))
//	    r.Mount("/", revalidatefeature.Routes(h, sessionMgr))
//	})
package apicors

import (
	"net/http"
	"strings"
)

var baseHeaders = []string{"Content-Type", "Accept"}

const allowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"

// Middleware allows any origin without credentials. extraHeaders are added
// to Access-Control-Allow-Headers.
func Middleware(extraHeaders ...string) func(http.Handler) http.Handler {
	headers := allowHeaders(extraHeaders)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			writeCommon(w, headers)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MiddlewareWithOrigins only echoes origins in allowedOrigins. Requests
// from other origins get no CORS headers and the browser blocks them.
func MiddlewareWithOrigins(allowedOrigins []string, extraHeaders ...string) func(http.Handler) http.Handler {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[strings.TrimRight(o, "/")] = struct{}{}
	}
	headers := allowHeaders(extraHeaders)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				if _, ok := originSet[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
			}
			writeCommon(w, headers)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func allowHeaders(extra []string) string {
	return strings.Join(append(append([]string{}, baseHeaders...), extra...), ", ")
}

func writeCommon(w http.ResponseWriter, headers string) {
	w.Header().Set("Access-Control-Allow-Methods", allowMethods)
	w.Header().Set("Access-Control-Allow-Headers", headers)
	w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours
}
