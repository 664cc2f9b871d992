package socialmedia

import (
	"net/http"
	"testing"
	"time"

	contentstore "github.com/dalemusser/stratastore/internal/app/store/content"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/furniture"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/dalemusser/stratastore/internal/testutil"
	"go.uber.org/zap"
)

func TestCreateAndUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager("this-is-a-32-character-long-key!", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	router := furniture.AdminRoutes(furniture.NewHandler(Resource(contentstore.NewSocialMedia(db)), nil, logger), sm)
	admin := testutil.AdminUser()

	do := func(method, target string, body any) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		router.ServeHTTP(rec, testutil.WithUser(testutil.NewJSONRequest(method, target, body), admin))
		return rec
	}

	rec := do(http.MethodPost, "/", map[string]any{"platform": " Instagram ", "url": "https://instagram.com/shop"})
	rec.AssertStatus(t, http.StatusCreated)
	var link models.SocialMedia
	rec.DecodeJSON(t, &link)
	if link.Platform != "instagram" || link.Icon != "instagram" {
		t.Errorf("created = %+v, want normalized platform used as icon", link)
	}

	do(http.MethodPost, "/", map[string]any{"platform": "instagram", "url": "/relative"}).AssertStatus(t, http.StatusBadRequest)
	do(http.MethodPost, "/", map[string]any{"platform": "my platform!", "url": "https://x.com"}).AssertStatus(t, http.StatusBadRequest)
	do(http.MethodPost, "/", map[string]any{"url": "https://x.com"}).AssertStatus(t, http.StatusBadRequest)

	rec = do(http.MethodPut, "/"+link.ID.Hex(), map[string]any{"url": "https://instagram.com/newshop"})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "newshop")
}
