package auth

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/stratastore/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SessionUser is the signed-in account attached to a request.
type SessionUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// IsAdmin reports whether the user may change storefront content.
func (u *SessionUser) IsAdmin() bool {
	return u != nil && normalize.Token(u.Role) == "admin"
}

// UserID parses ID, returning the nil ObjectID when it is malformed.
func (u *SessionUser) UserID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

type ctxKey struct{}

// CurrentUser returns the user LoadSessionUser attached, if any.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(ctxKey{}).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser attaches u to r as LoadSessionUser would.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, u))
}

// LoadSessionUser attaches the signed-in user, if any, to the request. A
// cookie that cannot be read, or that names an account which is gone or
// disabled, leaves the request anonymous.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			reason, suspicious := cookieProblem(err)
			log := sm.logger.Debug
			if suspicious {
				log = sm.logger.Warn
			}
			log("session cookie ignored",
				zap.String("reason", reason),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr))
			next.ServeHTTP(w, r)
			return
		}

		uid, _ := sess.Values[keyUserID].(string)
		if uid == "" {
			next.ServeHTTP(w, r)
			return
		}

		var u *SessionUser
		if sm.fetcher != nil {
			u = sm.fetcher.FetchUser(r.Context(), uid)
			if u == nil {
				sm.logger.Info("session dropped: account missing or disabled", zap.String("user_id", uid))
				sm.SignOut(w, r)
				next.ServeHTTP(w, r)
				return
			}
		} else {
			role, _ := sess.Values[keyRole].(string)
			u = &SessionUser{ID: uid, Role: role}
		}
		next.ServeHTTP(w, WithTestUser(r, u))
	})
}

// RequireSignedIn answers 401 unless a user is attached.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			jsonutil.Unauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers 401 to anyone who is not a signed-in admin, including
// signed-in staff.
func (sm *SessionManager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !u.IsAdmin() {
			if ok {
				sm.logger.Info("admin route refused",
					zap.String("user_id", u.ID),
					zap.String("role", u.Role),
					zap.String("path", r.URL.Path))
			}
			jsonutil.Unauthorized(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
