package adminauth

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/stratastore/internal/app/store/ratelimit"
	userstore "github.com/dalemusser/stratastore/internal/app/store/users"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/authutil"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/dalemusser/stratastore/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const password = "correct-horse-battery"

func newRouter(t *testing.T, maxAttempts int) (chi.Router, *userstore.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sm, err := auth.NewSessionManager("this-is-a-32-character-long-key!", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	users := userstore.New(db)
	limiter := ratelimit.New(db, ratelimit.ScopeAdminLogin, maxAttempts, 15*time.Minute, 30*time.Minute)
	return Routes(NewHandler(users, sm, limiter, nil, logger)), users
}

func addUser(t *testing.T, users *userstore.Store, email, role, status string) {
	t.Helper()
	hash, err := authutil.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := users.Create(ctx, models.User{
		FullName:     "Shop Owner",
		Email:        email,
		AuthMethod:   models.AuthPassword,
		PasswordHash: &hash,
		Role:         role,
		Status:       status,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func login(router chi.Router, email, pw string) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(http.MethodPost, "/login", map[string]string{"email": email, "password": pw}))
	return rec
}

func TestLogin_Success(t *testing.T) {
	router, users := newRouter(t, 5)
	addUser(t, users, "owner@example.com", models.RoleAdmin, models.StatusActive)

	rec := login(router, " Owner@Example.com ", password)
	rec.AssertStatus(t, http.StatusOK)

	var got userView
	rec.DecodeJSON(t, &got)
	if !got.IsAdmin || got.Email != "owner@example.com" {
		t.Errorf("user = %+v", got)
	}
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("login should set the session cookie")
	}
}

func TestLogin_Rejected(t *testing.T) {
	router, users := newRouter(t, 100)
	addUser(t, users, "owner@example.com", models.RoleAdmin, models.StatusActive)
	addUser(t, users, "gone@example.com", models.RoleAdmin, models.StatusDisabled)

	tests := []struct {
		name  string
		email string
		pw    string
		want  int
	}{
		{"wrong password", "owner@example.com", "nope-nope", http.StatusUnauthorized},
		{"unknown user", "nobody@example.com", password, http.StatusUnauthorized},
		{"disabled user", "gone@example.com", password, http.StatusUnauthorized},
		{"missing password", "owner@example.com", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := login(router, tt.email, tt.pw)
			rec.AssertStatus(t, tt.want)
			if rec.Header().Get("Set-Cookie") != "" {
				t.Error("rejected login must not set a cookie")
			}
		})
	}
}

func TestLogin_LocksOutAfterRepeatedFailures(t *testing.T) {
	router, users := newRouter(t, 3)
	addUser(t, users, "owner@example.com", models.RoleAdmin, models.StatusActive)

	login(router, "owner@example.com", "bad-1").AssertStatus(t, http.StatusUnauthorized)
	login(router, "owner@example.com", "bad-2").AssertStatus(t, http.StatusUnauthorized)
	login(router, "owner@example.com", "bad-3").AssertStatus(t, http.StatusTooManyRequests)

	// Locked out even with the right password.
	login(router, "owner@example.com", password).AssertStatus(t, http.StatusTooManyRequests)
}

func TestMe(t *testing.T) {
	router, _ := newRouter(t, 5)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/me"))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/me", testutil.StaffUser()))
	rec.AssertStatus(t, http.StatusOK)
	var got userView
	rec.DecodeJSON(t, &got)
	if got.IsAdmin || got.Role != models.RoleStaff {
		t.Errorf("me = %+v, want staff without admin", got)
	}
}

func TestLogout(t *testing.T) {
	router, _ := newRouter(t, 5)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/logout", testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
}
