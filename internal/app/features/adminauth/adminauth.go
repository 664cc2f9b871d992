// Package adminauth signs back-office users in and out with email and password.
package adminauth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/stratastore/internal/app/store/audit"
	"github.com/dalemusser/stratastore/internal/app/store/ratelimit"
	userstore "github.com/dalemusser/stratastore/internal/app/store/users"
	"github.com/dalemusser/stratastore/internal/app/system/auditlog"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/authutil"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/stratastore/internal/app/system/normalize"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const invalidCredentials = "invalid email or password"

// Handler serves /api/auth.
type Handler struct {
	users   *userstore.Store
	sm      *auth.SessionManager
	limiter *ratelimit.Store // nil disables login rate limiting
	audit   *auditlog.Logger
	logger  *zap.Logger
}

// NewHandler creates an adminauth Handler.
func NewHandler(users *userstore.Store, sm *auth.SessionManager, limiter *ratelimit.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{users: users, sm: sm, limiter: limiter, audit: audit, logger: logger}
}

// Routes mounts the session endpoints.
//
//   - POST /login   {email, password}
//   - POST /logout
//   - GET  /me
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.With(h.sm.RequireSignedIn).Get("/me", h.me)
	return r
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userView is what the admin UI learns about the signed-in user.
type userView struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"isAdmin"`
}

func lockoutMessage(until *time.Time) string {
	if until == nil {
		return "too many failed sign-in attempts, try again later"
	}
	remaining := time.Until(*until)
	if remaining > time.Minute {
		return fmt.Sprintf("too many failed sign-in attempts, try again in %d minute(s)", int(remaining.Minutes())+1)
	}
	return fmt.Sprintf("too many failed sign-in attempts, try again in %d second(s)", int(remaining.Seconds())+1)
}

// fail records a failed attempt and answers with 401, or 429 when this
// attempt triggered a lockout.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, email, eventType, reason string) {
	h.audit.LoginFailed(r.Context(), r, eventType, email, reason)
	if h.limiter != nil {
		if d := h.limiter.Hit(r.Context(), email); d.LockedUntil != nil {
			jsonutil.TooManyRequests(w, lockoutMessage(d.LockedUntil))
			return
		}
	}
	jsonutil.Unauthorized(w, invalidCredentials)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	email := normalize.Email(in.Email)
	if email == "" || in.Password == "" {
		jsonutil.BadRequest(w, "email and password are required")
		return
	}

	if h.limiter != nil {
		if d := h.limiter.Check(r.Context(), email); !d.Allowed {
			h.audit.LoginFailed(r.Context(), r, audit.EventLoginRateLimited, email, "rate limit exceeded")
			jsonutil.TooManyRequests(w, lockoutMessage(d.LockedUntil))
			return
		}
	}

	user, err := h.users.FindByEmail(r.Context(), email, models.AuthPassword)
	if errors.Is(err, mongo.ErrNoDocuments) {
		authutil.BurnCheck(in.Password)
		h.fail(w, r, email, audit.EventLoginFailedUserNotFound, "user not found")
		return
	}
	if err != nil {
		h.logger.Error("login lookup failed", zap.Error(err))
		jsonutil.InternalError(w, "internal error")
		return
	}

	if user.PasswordHash == nil || !authutil.CheckPassword(in.Password, *user.PasswordHash) {
		h.fail(w, r, email, audit.EventLoginFailedWrongPassword, "wrong password")
		return
	}
	if user.Disabled() {
		h.fail(w, r, email, audit.EventLoginFailedUserDisabled, "user disabled")
		return
	}

	if h.limiter != nil {
		_ = h.limiter.Reset(r.Context(), email)
	}

	if err := h.sm.SignIn(w, r, user.ID, user.Role); err != nil {
		h.logger.Error("session save failed", zap.Error(err))
		jsonutil.InternalError(w, "internal error")
		return
	}

	h.audit.LoginSuccess(r.Context(), r, user.ID, models.AuthPassword, user.Email)
	jsonutil.OK(w, userView{
		ID:      user.ID.Hex(),
		Name:    user.FullName,
		Email:   user.Email,
		Role:    user.Role,
		IsAdmin: user.IsAdmin(),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.audit.Logout(r.Context(), r, u.UserID())
	}
	h.sm.SignOut(w, r)
	jsonutil.OK(w, map[string]string{"message": "signed out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	jsonutil.OK(w, userView{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Role:    u.Role,
		IsAdmin: u.IsAdmin(),
	})
}
