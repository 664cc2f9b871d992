package sectionstore

import (
	"errors"
	"testing"

	"github.com/dalemusser/stratastore/internal/app/store/storeutil"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/dalemusser/stratastore/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func mustCreate(t *testing.T, store *Store, sec models.Section) models.Section {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	created, err := store.Create(ctx, sec)
	if err != nil {
		t.Fatalf("Create(%q) error = %v", sec.Slug, err)
	}
	return created
}

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sec := mustCreate(t, store, models.Section{Name: "Wedding Cards", Slug: "wedding-cards", IsActive: true})
	if sec.ID.IsZero() || sec.CreatedAt.IsZero() {
		t.Fatalf("Create() did not fill id/timestamps: %+v", sec)
	}

	byID, err := store.GetByID(ctx, sec.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.Name != "Wedding Cards" {
		t.Errorf("Name = %q", byID.Name)
	}

	bySlug, err := store.GetBySlug(ctx, "wedding-cards")
	if err != nil {
		t.Fatalf("GetBySlug() error = %v", err)
	}
	if bySlug.ID != sec.ID {
		t.Errorf("GetBySlug() id = %s, want %s", bySlug.ID.Hex(), sec.ID.Hex())
	}

	if _, err := store.GetBySlug(ctx, "missing"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("GetBySlug(missing) error = %v, want ErrNoDocuments", err)
	}
}

func TestStore_DuplicateSlug(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mustCreate(t, store, models.Section{Name: "A", Slug: "cards"})
	if _, err := store.Create(ctx, models.Section{Name: "B", Slug: "cards"}); !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("Create(dup) error = %v, want ErrDuplicateSlug", err)
	}

	other := mustCreate(t, store, models.Section{Name: "C", Slug: "flyers"})
	slug := "cards"
	if err := store.Update(ctx, other.ID, UpdateInput{Slug: &slug}); !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("Update(dup slug) error = %v, want ErrDuplicateSlug", err)
	}
}

func TestStore_UpdateClearParent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := mustCreate(t, store, models.Section{Name: "Root", Slug: "root"})
	child := mustCreate(t, store, models.Section{Name: "Child", Slug: "child", ParentID: &root.ID, Level: 1})

	level := 0
	if err := store.Update(ctx, child.ID, UpdateInput{ClearParent: true, ParentID: &root.ID, Level: &level}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := store.GetByID(ctx, child.ID)
	if got.ParentID != nil || got.Level != 0 {
		t.Errorf("after ClearParent: parent=%v level=%d, want root", got.ParentID, got.Level)
	}

	if err := store.Update(ctx, primitive.NewObjectID(), UpdateInput{Level: &level}); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("Update(unknown) error = %v, want ErrNoDocuments", err)
	}
}

func TestStore_ListOrdering(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := mustCreate(t, store, models.Section{Name: "Beta", Slug: "beta", DisplayOrder: 1, IsActive: true})
	b := mustCreate(t, store, models.Section{Name: "Alpha", Slug: "alpha", DisplayOrder: 1, IsActive: true})
	c := mustCreate(t, store, models.Section{Name: "Child", Slug: "child", ParentID: &a.ID, Level: 1, IsActive: true})
	mustCreate(t, store, models.Section{Name: "Hidden", Slug: "hidden", DisplayOrder: 0})

	all, err := store.List(ctx, false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 4 || all[0].Slug != "hidden" {
		t.Fatalf("List(all) = %d sections, first %q", len(all), all[0].Slug)
	}

	active, err := store.List(ctx, true)
	if err != nil {
		t.Fatalf("List(active) error = %v", err)
	}
	want := []primitive.ObjectID{b.ID, a.ID, c.ID}
	if len(active) != len(want) {
		t.Fatalf("List(active) = %d sections, want %d", len(active), len(want))
	}
	for i, id := range want {
		if active[i].ID != id {
			t.Errorf("active[%d] = %s, want %s", i, active[i].Name, id.Hex())
		}
	}
}

func TestStore_CountChildrenAndSlugExists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := mustCreate(t, store, models.Section{Name: "Root", Slug: "root"})
	mustCreate(t, store, models.Section{Name: "One", Slug: "one", ParentID: &root.ID, Level: 1})
	mustCreate(t, store, models.Section{Name: "Two", Slug: "two", ParentID: &root.ID, Level: 1})

	n, err := store.CountChildren(ctx, root.ID)
	if err != nil || n != 2 {
		t.Errorf("CountChildren() = %d, %v; want 2", n, err)
	}

	if exists, _ := store.SlugExists(ctx, "root", nil); !exists {
		t.Error("SlugExists(root) = false, want true")
	}
	if exists, _ := store.SlugExists(ctx, "root", &root.ID); exists {
		t.Error("SlugExists(root, excluding itself) = true, want false")
	}
}

func TestStore_BatchWrites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := mustCreate(t, store, models.Section{Name: "A", Slug: "a", ShowInNavbar: true})
	b := mustCreate(t, store, models.Section{Name: "B", Slug: "b", ShowInNavbar: true})

	if err := store.SetLevels(ctx, map[primitive.ObjectID]int{a.ID: 2, b.ID: 3}); err != nil {
		t.Fatalf("SetLevels() error = %v", err)
	}
	modified, err := store.SetNavbar(ctx, []primitive.ObjectID{a.ID, b.ID}, false)
	if err != nil || modified != 2 {
		t.Fatalf("SetNavbar() = %d, %v; want 2", modified, err)
	}
	if err := store.Reorder(ctx, []storeutil.Position{{ID: a.ID, Order: 9}, {ID: b.ID, Order: 4}}); err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}

	got, err := store.ListByIDs(ctx, []primitive.ObjectID{a.ID, b.ID})
	if err != nil || len(got) != 2 {
		t.Fatalf("ListByIDs() = %d, %v", len(got), err)
	}
	for _, s := range got {
		wantLevel, wantOrder := 2, 9
		if s.ID == b.ID {
			wantLevel, wantOrder = 3, 4
		}
		if s.Level != wantLevel || s.DisplayOrder != wantOrder || s.ShowInNavbar {
			t.Errorf("%s: level=%d order=%d navbar=%v", s.Name, s.Level, s.DisplayOrder, s.ShowInNavbar)
		}
	}

	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.GetByID(ctx, a.ID); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("GetByID(deleted) error = %v, want ErrNoDocuments", err)
	}
}
