// Package auth keeps the back-office session: a signed cookie naming the
// admin account, re-read from the users collection on every request.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultCookieName = "stratastore-admin"
	minKeyLength      = 32

	keyUserID   = "uid"
	keyRole     = "role"
	keyIssuedAt = "iat"
)

// ErrWeakSessionKey is returned by NewSessionManager when a secure deployment
// is given a short or placeholder signing key.
var ErrWeakSessionKey = errors.New("session key must be at least 32 random characters")

// UserFetcher loads the current state of a signed-in account. It returns nil
// when the account no longer exists or may not sign in.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionManager issues and reads admin session cookies.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	logger  *zap.Logger
	fetcher UserFetcher
}

// NewSessionManager builds a cookie-backed session manager. With secure set
// the cookie is HTTPS-only and a weak key is refused; in development a weak
// key only logs a warning.
func NewSessionManager(key, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if key == "" {
		return nil, ErrWeakSessionKey
	}
	if weakKey(key) {
		if secure {
			return nil, ErrWeakSessionKey
		}
		logger.Warn("weak session key accepted outside production", zap.Int("length", len(key)))
	}
	if name == "" {
		name = defaultCookieName
	}

	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   domain,
		MaxAge:   int(maxAge / time.Second),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionManager{store: store, name: name, logger: logger}, nil
}

// SetUserFetcher makes LoadSessionUser resolve users through f. Without a
// fetcher the role stored in the cookie is trusted as-is.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) {
	sm.fetcher = f
}

// SignIn replaces whatever session the request carried with a fresh one for
// userID.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID, role string) error {
	sess, err := sm.store.New(r, sm.name)
	if err != nil && sess == nil {
		return err
	}
	sess.IsNew = true
	sess.Values = map[any]any{
		keyUserID:   userID.Hex(),
		keyRole:     role,
		keyIssuedAt: time.Now().Unix(),
	}
	return sess.Save(r, w)
}

// SignOut expires the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) {
	sess, _ := sm.store.Get(r, sm.name)
	if sess == nil {
		return
	}
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		sm.logger.Warn("clear session cookie", zap.Error(err))
	}
}

// weakKey flags short keys and the placeholders that end up in sample configs.
func weakKey(key string) bool {
	if len(key) < minKeyLength {
		return true
	}
	lower := strings.ToLower(key)
	for _, p := range []string{"change-me", "changeme", "placeholder", "example", "insecure", "dev-only"} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// cookieProblem names why a session cookie could not be read, for logging.
// Tampered cookies are reported separately from expired or stale ones.
func cookieProblem(err error) (reason string, suspicious bool) {
	var sc securecookie.Error
	if !errors.As(err, &sc) || !sc.IsDecode() {
		return "store", false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "expired"):
		return "expired", false
	case strings.Contains(msg, "not valid"), strings.Contains(msg, "mac"):
		return "mac_invalid", true
	default:
		return "undecodable", false
	}
}
