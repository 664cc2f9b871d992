package authgoogle

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratastore/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/stratastore/internal/app/store/users"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/dalemusser/stratastore/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const testSessionKey = "this-is-a-32-character-long-key!"

// fakeGoogle serves the token and userinfo endpoints.
type fakeGoogle struct {
	srv      *httptest.Server
	email    string
	verified bool
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	g := &fakeGoogle{verified: true}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-access-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"email":          g.email,
			"verified_email": g.verified,
			"name":           "Test Admin",
		})
	})
	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)
	return g
}

type env struct {
	h      *Handler
	users  *userstore.Store
	states *oauthstate.Store
	google *fakeGoogle
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sm, err := auth.NewSessionManager(testSessionKey, "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	users := userstore.New(db)
	states := oauthstate.New(db)
	g := newFakeGoogle(t)

	h := NewHandler(users, sm, states, Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		BaseURL:      "http://api.test",
		AdminURL:     "http://shop.test/admin",
	}, nil, logger)
	h.oauth.Endpoint = oauth2.Endpoint{
		AuthURL:   g.srv.URL + "/auth",
		TokenURL:  g.srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	h.userInfoURL = g.srv.URL + "/userinfo"

	return env{h: h, users: users, states: states, google: g}
}

func (e env) seedUser(t *testing.T, email, role, status string) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := e.users.Create(ctx, models.User{
		FullName:   "Someone",
		Email:      email,
		AuthMethod: models.AuthGoogle,
		Role:       role,
		Status:     status,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}
}

// callback runs start, then feeds its state back to the callback.
func (e env) callback(t *testing.T, returnTo string) *httptest.ResponseRecorder {
	t.Helper()
	router := Routes(e.h)

	start := httptest.NewRecorder()
	router.ServeHTTP(start, httptest.NewRequest(http.MethodGet, "/?return="+url.QueryEscape(returnTo), nil))
	if start.Code != http.StatusTemporaryRedirect {
		t.Fatalf("start status = %d, want 307", start.Code)
	}
	loc, err := url.Parse(start.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatal("authorize URL has no state")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state="+url.QueryEscape(state)+"&code=abc", nil))
	return rec
}

func TestStart_RedirectsWithClientAndState(t *testing.T) {
	e := newEnv(t)

	rec := httptest.NewRecorder()
	Routes(e.h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	loc, _ := url.Parse(rec.Header().Get("Location"))
	q := loc.Query()
	if q.Get("client_id") != "client-id" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "http://api.test/auth/google/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("state") == "" {
		t.Error("state missing")
	}
}

func TestCallback_AdminSignsIn(t *testing.T) {
	e := newEnv(t)
	e.seedUser(t, "owner@example.com", models.RoleAdmin, models.StatusActive)
	e.google.email = "Owner@Example.com"

	rec := e.callback(t, "/products")

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "http://shop.test/admin/products" {
		t.Errorf("Location = %q", got)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected a session cookie")
	}
}

func TestCallback_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		seed     func(e env, t *testing.T)
		email    string
		verified bool
		wantErr  string
	}{
		{"unverified email", nil, "owner@example.com", false, "email_not_verified"},
		{"no account", nil, "stranger@example.com", true, "user_not_found"},
		{"staff account", func(e env, t *testing.T) {
			e.seedUser(t, "staff@example.com", models.RoleStaff, models.StatusActive)
		}, "staff@example.com", true, "not_admin"},
		{"disabled admin", func(e env, t *testing.T) {
			e.seedUser(t, "gone@example.com", models.RoleAdmin, models.StatusDisabled)
		}, "gone@example.com", true, "not_admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			if tt.seed != nil {
				tt.seed(e, t)
			}
			e.google.email = tt.email
			e.google.verified = tt.verified

			rec := e.callback(t, "")

			if rec.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want 303", rec.Code)
			}
			loc := rec.Header().Get("Location")
			if !strings.Contains(loc, "error="+tt.wantErr) {
				t.Errorf("Location = %q, want error=%s", loc, tt.wantErr)
			}
			if len(rec.Result().Cookies()) != 0 {
				t.Error("no session cookie expected")
			}
		})
	}
}

func TestCallback_UnknownState(t *testing.T) {
	e := newEnv(t)

	rec := httptest.NewRecorder()
	Routes(e.h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=forged&code=abc", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "invalid_state") {
		t.Errorf("Location = %q, want invalid_state", loc)
	}
}

func TestCallback_StateIsSingleUse(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	state, err := e.states.Issue(ctx, "")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	router := Routes(e.h)
	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?state="+state+"&error=access_denied", nil))
	if loc := first.Header().Get("Location"); !strings.Contains(loc, "access_denied") {
		t.Errorf("first Location = %q, want access_denied", loc)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?state="+state+"&code=abc", nil))
	if loc := second.Header().Get("Location"); !strings.Contains(loc, "invalid_state") {
		t.Errorf("second Location = %q, want invalid_state", loc)
	}
}

func TestSafeReturn(t *testing.T) {
	tests := map[string]string{
		"/orders":              "/orders",
		"":                     "",
		"//evil.example":       "",
		"https://evil.example": "",
		`/\evil.example`:       "",
	}
	for in, want := range tests {
		if got := safeReturn(in); got != want {
			t.Errorf("safeReturn(%q) = %q, want %q", in, got, want)
		}
	}
}
