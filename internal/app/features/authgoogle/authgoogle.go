// Package authgoogle signs existing admin accounts in with Google.
// Google sign-in never creates accounts.
package authgoogle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/stratastore/internal/app/store/audit"
	"github.com/dalemusser/stratastore/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/stratastore/internal/app/store/users"
	"github.com/dalemusser/stratastore/internal/app/system/auditlog"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/normalize"
	"github.com/dalemusser/stratastore/internal/app/system/timeouts"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Config holds the OAuth client registration and where to send the browser.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string // public URL of this API; the callback is BaseURL + "/auth/google/callback"
	AdminURL     string // landing page after sign-in, e.g. https://shop.example/admin
}

// Handler provides the Google OAuth endpoints.
type Handler struct {
	users       *userstore.Store
	sm          *auth.SessionManager
	states      *oauthstate.Store
	oauth       *oauth2.Config
	userInfoURL string
	adminURL    string
	audit       *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a Google OAuth Handler.
func NewHandler(users *userstore.Store, sm *auth.SessionManager, states *oauthstate.Store, cfg Config, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		users:  users,
		sm:     sm,
		states: states,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  strings.TrimRight(cfg.BaseURL, "/") + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		adminURL:    cfg.AdminURL,
		audit:       audit,
		logger:      logger,
	}
}

// Routes mounts GET / (start) and GET /callback.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.start)
	r.Get("/callback", h.callback)
	return r
}

// safeReturn accepts only same-site paths.
func safeReturn(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return ""
	}
	return p
}

// redirect sends the browser back to the admin UI, optionally with an error code.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, returnTo, errCode string) {
	target := strings.TrimRight(h.adminURL, "/") + returnTo
	if target == "" {
		target = "/"
	}
	if errCode != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + "error=" + url.QueryEscape(errCode)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Issue(r.Context(), safeReturn(r.URL.Query().Get("return")))
	if err != nil {
		h.logger.Error("oauth state issue failed", zap.Error(err))
		h.redirect(w, r, "", "oauth_error")
		return
	}
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	returnTo, ok := h.states.Redeem(r.Context(), q.Get("state"))
	if !ok {
		h.logger.Warn("oauth callback with unknown state")
		h.redirect(w, r, "", "invalid_state")
		return
	}
	if e := q.Get("error"); e != "" {
		h.logger.Info("google returned an error", zap.String("error", e))
		h.redirect(w, r, returnTo, "access_denied")
		return
	}

	token, err := h.oauth.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		h.logger.Warn("oauth code exchange failed", zap.Error(err))
		h.redirect(w, r, returnTo, "token_exchange_failed")
		return
	}
	info, err := h.userInfo(r.Context(), token)
	if err != nil {
		h.logger.Warn("google userinfo failed", zap.Error(err))
		h.redirect(w, r, returnTo, "userinfo_failed")
		return
	}
	email := normalize.Email(info.Email)
	if !info.VerifiedEmail || email == "" {
		h.audit.LoginFailed(r.Context(), r, audit.EventLoginFailedUserNotFound, email, "google email not verified")
		h.redirect(w, r, returnTo, "email_not_verified")
		return
	}

	user, err := h.users.FindByEmail(r.Context(), email, "")
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.audit.LoginFailed(r.Context(), r, audit.EventLoginFailedUserNotFound, email, "no account")
		h.redirect(w, r, returnTo, "user_not_found")
		return
	}
	if err != nil {
		h.logger.Error("user lookup failed", zap.Error(err))
		h.redirect(w, r, returnTo, "server_error")
		return
	}
	if !user.IsAdmin() {
		h.audit.LoginFailed(r.Context(), r, audit.EventLoginFailedUserDisabled, email, "not an active admin")
		h.redirect(w, r, returnTo, "not_admin")
		return
	}

	if err := h.sm.SignIn(w, r, user.ID, user.Role); err != nil {
		h.logger.Error("session create failed", zap.Error(err))
		h.redirect(w, r, returnTo, "session_error")
		return
	}

	h.audit.LoginSuccess(r.Context(), r, user.ID, models.AuthGoogle, user.Email)
	h.redirect(w, r, returnTo, "")
}

// googleUser is the subset of the userinfo response we read.
type googleUser struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *Handler) userInfo(ctx context.Context, token *oauth2.Token) (googleUser, error) {
	ctx, cancel := timeouts.Bound(ctx, timeouts.Outbound(), h.logger, "google.userinfo")
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.userInfoURL, nil)
	if err != nil {
		return googleUser{}, err
	}
	resp, err := h.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return googleUser{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleUser{}, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var u googleUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return googleUser{}, err
	}
	return u, nil
}
