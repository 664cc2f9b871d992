package products

import (
	"net/http"
	"testing"
	"time"

	bundlestore "github.com/dalemusser/stratastore/internal/app/store/bundles"
	productstore "github.com/dalemusser/stratastore/internal/app/store/products"
	sectionstore "github.com/dalemusser/stratastore/internal/app/store/sections"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/catalog"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/dalemusser/stratastore/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	router  chi.Router
	bundles *bundlestore.Store
	section models.Section
	hidden  models.Section
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sections := sectionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	sec, err := sections.Create(ctx, models.Section{Name: "Resumes", Slug: "resumes", IsActive: true})
	if err != nil {
		t.Fatalf("create section: %v", err)
	}
	hidden, err := sections.Create(ctx, models.Section{Name: "Archive", Slug: "archive", IsActive: false})
	if err != nil {
		t.Fatalf("create section: %v", err)
	}

	bundles := bundlestore.New(db)
	svc := catalog.New(productstore.New(db), bundles, sections)
	sm, err := auth.NewSessionManager("this-is-a-32-character-long-key!", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	return env{router: Routes(NewHandler(svc, nil, logger), sm), bundles: bundles, section: sec, hidden: hidden}
}

func (e env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e env) create(t *testing.T, body map[string]any) models.Product {
	t.Helper()
	rec := e.do(testutil.WithUser(testutil.NewJSONRequest(http.MethodPost, "/", body), testutil.AdminUser()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var p models.Product
	rec.DecodeJSON(t, &p)
	return p
}

func TestCreateAndGet(t *testing.T) {
	e := newEnv(t)

	p := e.create(t, map[string]any{
		"title":         "Minimal Resume",
		"originalPrice": 500,
		"discountPrice": 450,
		"sectionIds":    []string{e.section.ID.Hex()},
		"files":         []map[string]string{{"name": "resume.docx", "url": "https://cdn.example.com/resume.docx"}},
	})
	if p.ID.IsZero() || !p.IsActive {
		t.Fatalf("created product = %+v", p)
	}

	rec := e.do(testutil.NewRequest(http.MethodGet, "/"+p.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	var got models.Product
	rec.DecodeJSON(t, &got)
	if got.Title != "Minimal Resume" || got.DiscountPrice == nil || *got.DiscountPrice != 450 {
		t.Errorf("got = %+v", got)
	}
	if len(got.Files) != 1 || got.Files[0].Name != "resume.docx" {
		t.Errorf("files = %+v", got.Files)
	}
}

func TestCreate_InactiveSectionRejected(t *testing.T) {
	e := newEnv(t)

	rec := e.do(testutil.WithUser(testutil.NewJSONRequest(http.MethodPost, "/", map[string]any{
		"title":         "X",
		"originalPrice": 10,
		"sectionIds":    []string{e.hidden.ID.Hex()},
	}), testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "not active")
}

func TestCreate_RequiresAdmin(t *testing.T) {
	e := newEnv(t)
	rec := e.do(testutil.NewJSONRequest(http.MethodPost, "/", map[string]any{"title": "X"}))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestList_Filters(t *testing.T) {
	e := newEnv(t)
	sec := e.section.ID.Hex()

	e.create(t, map[string]any{"title": "A", "originalPrice": 1, "sectionIds": []string{sec}, "isFeatured": true})
	e.create(t, map[string]any{"title": "B", "originalPrice": 1, "sectionIds": []string{sec}})
	e.create(t, map[string]any{"title": "C", "originalPrice": 1, "sectionIds": []string{sec}, "isActive": false})

	tests := []struct {
		name   string
		target string
		admin  bool
		want   int
	}{
		{"public", "/", false, 2},
		{"featured", "/?featured=true", false, 1},
		{"by section", "/?section=" + sec, false, 2},
		{"other section", "/?section=" + primitive.NewObjectID().Hex(), false, 0},
		{"public cannot see all", "/?all=true", false, 2},
		{"admin all", "/?all=true", true, 3},
		{"limit", "/?limit=1", false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewRequest(http.MethodGet, tt.target)
			if tt.admin {
				req = testutil.WithUser(req, testutil.AdminUser())
			}
			rec := e.do(req)
			rec.AssertStatus(t, http.StatusOK)
			var got []models.Product
			rec.DecodeJSON(t, &got)
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestGet_InactiveHiddenFromPublic(t *testing.T) {
	e := newEnv(t)
	p := e.create(t, map[string]any{"title": "Draft", "originalPrice": 1, "sectionIds": []string{e.section.ID.Hex()}, "isActive": false})

	rec := e.do(testutil.NewRequest(http.MethodGet, "/"+p.ID.Hex()))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = e.do(testutil.WithUser(testutil.NewRequest(http.MethodGet, "/"+p.ID.Hex()), testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
}

func TestUpdate(t *testing.T) {
	e := newEnv(t)
	admin := testutil.AdminUser()
	p := e.create(t, map[string]any{"title": "Card", "originalPrice": 100, "discountPrice": 80, "sectionIds": []string{e.section.ID.Hex()}})

	rec := e.do(testutil.WithUser(testutil.NewJSONRequest(http.MethodPut, "/"+p.ID.Hex(), map[string]any{
		"title":         "Business Card",
		"clearDiscount": true,
	}), admin))
	rec.AssertStatus(t, http.StatusOK)
	var got models.Product
	rec.DecodeJSON(t, &got)
	if got.Title != "Business Card" || got.DiscountPrice != nil {
		t.Errorf("updated = %+v", got)
	}

	rec = e.do(testutil.WithUser(testutil.NewJSONRequest(http.MethodPut, "/"+p.ID.Hex(), map[string]any{"discountPrice": 500}), admin))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = e.do(testutil.WithUser(testutil.NewJSONRequest(http.MethodPut, "/"+primitive.NewObjectID().Hex(), map[string]any{"title": "x"}), admin))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestDelete_BlockedByBundle(t *testing.T) {
	e := newEnv(t)
	admin := testutil.AdminUser()
	p := e.create(t, map[string]any{"title": "Card", "originalPrice": 100, "sectionIds": []string{e.section.ID.Hex()}})

	ctx, cancel := testutil.TestContext()
	defer cancel()
	b, err := e.bundles.Create(ctx, models.Bundle{Name: "Set", ProductIDs: []primitive.ObjectID{p.ID}})
	if err != nil {
		t.Fatalf("create bundle: %v", err)
	}

	rec := e.do(testutil.WithUser(testutil.NewRequest(http.MethodDelete, "/"+p.ID.Hex()), admin))
	rec.AssertStatus(t, http.StatusBadRequest)

	if err := e.bundles.Delete(ctx, b.ID); err != nil {
		t.Fatalf("delete bundle: %v", err)
	}
	rec = e.do(testutil.WithUser(testutil.NewRequest(http.MethodDelete, "/"+p.ID.Hex()), admin))
	rec.AssertStatus(t, http.StatusOK)

	rec = e.do(testutil.WithUser(testutil.NewRequest(http.MethodGet, "/"+p.ID.Hex()), admin))
	rec.AssertStatus(t, http.StatusNotFound)
}
