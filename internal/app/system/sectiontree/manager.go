package sectiontree

import (
	"context"
	"errors"
	"strings"
	"time"

	sectionstore "github.com/dalemusser/stratastore/internal/app/store/sections"
	"github.com/dalemusser/stratastore/internal/app/store/storeutil"
	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Store is the persistence the manager needs. *sectionstore.Store satisfies it.
type Store interface {
	List(ctx context.Context, activeOnly bool) ([]models.Section, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Section, error)
	GetBySlug(ctx context.Context, slug string) (models.Section, error)
	SlugExists(ctx context.Context, slug string, excludeID *primitive.ObjectID) (bool, error)
	Create(ctx context.Context, sec models.Section) (models.Section, error)
	Update(ctx context.Context, id primitive.ObjectID, input sectionstore.UpdateInput) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountChildren(ctx context.Context, id primitive.ObjectID) (int64, error)
	SetLevels(ctx context.Context, levels map[primitive.ObjectID]int) error
	SetNavbar(ctx context.Context, ids []primitive.ObjectID, show bool) (int64, error)
	Reorder(ctx context.Context, positions []storeutil.Position) error
}

// RefCounter counts catalog items filed under a section.
type RefCounter interface {
	CountBySection(ctx context.Context, sectionID primitive.ObjectID) (int64, error)
}

// Cache holds built forests between writes.
type Cache interface {
	Get(ctx context.Context, key string) ([]*models.SectionNode, bool)
	Set(ctx context.Context, key string, forest []*models.SectionNode) error
	Invalidate(ctx context.Context) error
}

// TxFunc runs fn as one unit of work where the database allows it.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// Cache keys for the derived views.
const (
	KeyHierarchyAll    = "hierarchy:all"
	KeyHierarchyActive = "hierarchy:active"
	KeyNavigation      = "navigation"
	KeyHomepage        = "homepage"
)

// Manager enforces the hierarchy rules on top of a Store.
type Manager struct {
	store    Store
	products RefCounter
	bundles  RefCounter
	cache    Cache
	tx       TxFunc
	now      func() time.Time
	logger   *zap.Logger
}

// Option customizes a Manager.
type Option func(*Manager)

// WithCache enables forest caching.
func WithCache(c Cache) Option {
	return func(m *Manager) { m.cache = c }
}

// WithTx runs cascades through fn (usually txn.Run).
func WithTx(fn TxFunc) Option {
	return func(m *Manager) { m.tx = fn }
}

// WithClock replaces time.Now, used for slug suffixes.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger used for cache warnings.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager. products and bundles count references
// that block deletion.
func NewManager(store Store, products, bundles RefCounter, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		products: products,
		bundles:  bundles,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.tx == nil {
		m.tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return m
}

// CreateInput describes a new section.
type CreateInput struct {
	Name           string
	Slug           string // derived from Name when empty
	Description    string
	ParentID       *primitive.ObjectID
	DisplayOrder   int
	ShowInNavbar   bool
	ShowInHomepage bool
	IsActive       bool
}

// Create adds a section. The slug is derived from the name when absent and
// suffixed when taken; the level follows the parent. Inactive parents are allowed.
func (m *Manager) Create(ctx context.Context, in CreateInput) (models.Section, error) {
	const op = "sections.Create"

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Section{}, apperr.Invalid(op, "name is required")
	}

	level := 0
	if in.ParentID != nil {
		parent, err := m.store.GetByID(ctx, *in.ParentID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Section{}, apperr.Invalid(op, "parent section not found")
		}
		if err != nil {
			return models.Section{}, apperr.Internal(op, err)
		}
		level = parent.Level + 1
	}

	base := in.Slug
	if strings.TrimSpace(base) == "" {
		base = name
	}
	slug, err := m.uniqueSlug(ctx, op, base, nil)
	if err != nil {
		return models.Section{}, err
	}

	sec, err := m.store.Create(ctx, models.Section{
		Name:           name,
		Slug:           slug,
		Description:    in.Description,
		ParentID:       in.ParentID,
		Level:          level,
		DisplayOrder:   in.DisplayOrder,
		ShowInNavbar:   in.ShowInNavbar,
		ShowInHomepage: in.ShowInHomepage,
		IsActive:       in.IsActive,
	})
	if errors.Is(err, sectionstore.ErrDuplicateSlug) {
		return models.Section{}, apperr.Integrity(op, "slug %q is already in use", slug)
	}
	if err != nil {
		return models.Section{}, apperr.Internal(op, err)
	}

	m.invalidate(ctx)
	return sec, nil
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Name           *string
	Slug           *string
	Description    *string
	ParentID       *primitive.ObjectID
	MoveToRoot     bool // detach from the current parent; wins over ParentID
	DisplayOrder   *int
	ShowInNavbar   *bool
	ShowInHomepage *bool
	IsActive       *bool
}

// Update applies a patch. Renaming without an explicit slug regenerates the
// slug. Re-parenting is rejected when the new parent lies in the section's
// own subtree; the new level is written to the section and every descendant.
func (m *Manager) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) (models.Section, error) {
	const op = "sections.Update"

	cur, err := m.store.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Section{}, apperr.NotFound(op, "section")
	}
	if err != nil {
		return models.Section{}, apperr.Internal(op, err)
	}

	patch := sectionstore.UpdateInput{
		Description:    in.Description,
		DisplayOrder:   in.DisplayOrder,
		ShowInNavbar:   in.ShowInNavbar,
		ShowInHomepage: in.ShowInHomepage,
		IsActive:       in.IsActive,
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return models.Section{}, apperr.Invalid(op, "name cannot be empty")
		}
		patch.Name = &name
	}

	var slugBase string
	switch {
	case in.Slug != nil && strings.TrimSpace(*in.Slug) != "":
		slugBase = *in.Slug
	case patch.Name != nil && *patch.Name != cur.Name:
		slugBase = *patch.Name
	}
	if slugBase != "" {
		slug, err := m.uniqueSlug(ctx, op, slugBase, &id)
		if err != nil {
			return models.Section{}, err
		}
		if slug != cur.Slug {
			patch.Slug = &slug
		}
	}

	var descendantLevels map[primitive.ObjectID]int
	if reparent(cur, in) {
		all, err := m.store.List(ctx, false)
		if err != nil {
			return models.Section{}, apperr.Internal(op, err)
		}
		idx := NewIndex(all)

		newLevel := 0
		if in.MoveToRoot {
			patch.ClearParent = true
		} else {
			parent, ok := idx.Get(*in.ParentID)
			if !ok {
				return models.Section{}, apperr.Invalid(op, "parent section not found")
			}
			if idx.CreatesCycle(id, parent.ID) {
				return models.Section{}, apperr.Integrity(op, "a section cannot be moved under itself or one of its descendants")
			}
			patch.ParentID = in.ParentID
			newLevel = parent.Level + 1
		}
		patch.Level = &newLevel

		descendantLevels = idx.Relevel(id, newLevel)
		delete(descendantLevels, id)
	}

	err = m.tx(ctx, func(ctx context.Context) error {
		if err := m.store.Update(ctx, id, patch); err != nil {
			return err
		}
		return m.store.SetLevels(ctx, descendantLevels)
	})
	switch {
	case errors.Is(err, sectionstore.ErrDuplicateSlug):
		return models.Section{}, apperr.Integrity(op, "slug is already in use")
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.Section{}, apperr.NotFound(op, "section")
	case err != nil:
		return models.Section{}, apperr.Internal(op, err)
	}

	m.invalidate(ctx)

	updated, err := m.store.GetByID(ctx, id)
	if err != nil {
		return models.Section{}, apperr.Internal(op, err)
	}
	return updated, nil
}

func reparent(cur models.Section, in UpdateInput) bool {
	if in.MoveToRoot {
		return cur.ParentID != nil
	}
	if in.ParentID == nil {
		return false
	}
	return cur.ParentID == nil || *cur.ParentID != *in.ParentID
}

// Delete removes a leaf section that no product or bundle references.
func (m *Manager) Delete(ctx context.Context, id primitive.ObjectID) error {
	const op = "sections.Delete"

	if _, err := m.store.GetByID(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound(op, "section")
		}
		return apperr.Internal(op, err)
	}

	children, err := m.store.CountChildren(ctx, id)
	if err != nil {
		return apperr.Internal(op, err)
	}
	if children > 0 {
		return apperr.Integrity(op, "section has %d child sections; move or delete them first", children)
	}

	if m.products != nil {
		n, err := m.products.CountBySection(ctx, id)
		if err != nil {
			return apperr.Internal(op, err)
		}
		if n > 0 {
			return apperr.Integrity(op, "section is referenced by %d products", n)
		}
	}
	if m.bundles != nil {
		n, err := m.bundles.CountBySection(ctx, id)
		if err != nil {
			return apperr.Internal(op, err)
		}
		if n > 0 {
			return apperr.Integrity(op, "section is referenced by %d bundles", n)
		}
	}

	if err := m.store.Delete(ctx, id); err != nil {
		return apperr.Internal(op, err)
	}
	m.invalidate(ctx)
	return nil
}

// Get returns one section.
func (m *Manager) Get(ctx context.Context, id primitive.ObjectID) (models.Section, error) {
	sec, err := m.store.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Section{}, apperr.NotFound("sections.Get", "section")
	}
	if err != nil {
		return models.Section{}, apperr.Internal("sections.Get", err)
	}
	return sec, nil
}

// GetBySlug returns a section and its breadcrumb, root first.
func (m *Manager) GetBySlug(ctx context.Context, slug string) (models.Section, []models.Section, error) {
	const op = "sections.GetBySlug"

	sec, err := m.store.GetBySlug(ctx, slug)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Section{}, nil, apperr.NotFound(op, "section")
	}
	if err != nil {
		return models.Section{}, nil, apperr.Internal(op, err)
	}
	if sec.ParentID == nil {
		return sec, []models.Section{}, nil
	}

	all, err := m.store.List(ctx, false)
	if err != nil {
		return models.Section{}, nil, apperr.Internal(op, err)
	}
	idx := NewIndex(all)
	ancestors := idx.Ancestors(sec.ID)
	crumbs := make([]models.Section, 0, len(ancestors))
	for i := len(ancestors) - 1; i >= 0; i-- {
		if a, ok := idx.Get(ancestors[i]); ok {
			crumbs = append(crumbs, *a)
		}
	}
	return sec, crumbs, nil
}

// List returns the flat section list ordered by level then display order.
func (m *Manager) List(ctx context.Context, activeOnly bool) ([]models.Section, error) {
	sections, err := m.store.List(ctx, activeOnly)
	if err != nil {
		return nil, apperr.Internal("sections.List", err)
	}
	return sections, nil
}

// BuildHierarchy returns the section forest, optionally only active sections.
func (m *Manager) BuildHierarchy(ctx context.Context, activeOnly bool) ([]*models.SectionNode, error) {
	key := KeyHierarchyAll
	if activeOnly {
		key = KeyHierarchyActive
	}
	return m.forest(ctx, key, activeOnly, nil)
}

// GetNavigationSections returns the navbar forest: active sections flagged
// for the navbar whose whole ancestor chain is too.
func (m *Manager) GetNavigationSections(ctx context.Context) ([]*models.SectionNode, error) {
	return m.forest(ctx, KeyNavigation, true, InNavbar)
}

// GetHomepageSections returns the homepage forest, filtered like navigation.
func (m *Manager) GetHomepageSections(ctx context.Context) ([]*models.SectionNode, error) {
	return m.forest(ctx, KeyHomepage, true, OnHomepage)
}

func (m *Manager) forest(ctx context.Context, key string, activeOnly bool, keep func(*models.Section) bool) ([]*models.SectionNode, error) {
	if m.cache != nil {
		if cached, ok := m.cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	sections, err := m.store.List(ctx, activeOnly)
	if err != nil {
		return nil, apperr.Internal("sections.forest", err)
	}
	if keep != nil {
		sections = Filter(sections, keep)
	}
	out := Build(sections)

	if m.cache != nil {
		if err := m.cache.Set(ctx, key, out); err != nil {
			m.logger.Warn("section cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}

// SetNavbarVisibility toggles navbar display. Hiding a section hides every
// descendant; showing one shows every ancestor. The writes run as one
// transaction where supported and are idempotent otherwise, so a failed
// call can simply be retried. Returns the number of sections changed.
func (m *Manager) SetNavbarVisibility(ctx context.Context, id primitive.ObjectID, show bool) (int64, error) {
	const op = "sections.SetNavbarVisibility"

	all, err := m.store.List(ctx, false)
	if err != nil {
		return 0, apperr.Internal(op, err)
	}
	idx := NewIndex(all)
	if _, ok := idx.Get(id); !ok {
		return 0, apperr.NotFound(op, "section")
	}

	ids := []primitive.ObjectID{id}
	if show {
		ids = append(ids, idx.Ancestors(id)...)
	} else {
		ids = append(ids, idx.Descendants(id)...)
	}

	var changed int64
	err = m.tx(ctx, func(ctx context.Context) error {
		n, err := m.store.SetNavbar(ctx, ids, show)
		changed = n
		return err
	})
	if err != nil {
		return 0, apperr.Internal(op, err)
	}

	m.invalidate(ctx)
	return changed, nil
}

// Reorder assigns display orders. Updates are independent and concurrent;
// a failure can leave the list partially reordered.
func (m *Manager) Reorder(ctx context.Context, positions []storeutil.Position) error {
	const op = "sections.Reorder"
	if len(positions) == 0 {
		return apperr.Invalid(op, "no sections to reorder")
	}
	if err := m.store.Reorder(ctx, positions); err != nil {
		return apperr.Internal(op, err)
	}
	m.invalidate(ctx)
	return nil
}

// Invalidate drops every cached forest.
func (m *Manager) Invalidate(ctx context.Context) error {
	if m.cache == nil {
		return nil
	}
	return m.cache.Invalidate(ctx)
}

func (m *Manager) invalidate(ctx context.Context) {
	if err := m.Invalidate(ctx); err != nil {
		m.logger.Warn("section cache invalidation failed", zap.Error(err))
	}
}

func (m *Manager) uniqueSlug(ctx context.Context, op, base string, excludeID *primitive.ObjectID) (string, error) {
	slug := Slugify(base)
	if slug == "" {
		return "", apperr.Invalid(op, "name must contain letters or digits")
	}
	taken, err := m.store.SlugExists(ctx, slug, excludeID)
	if err != nil {
		return "", apperr.Internal(op, err)
	}
	if taken {
		slug = withSuffix(slug, m.now())
	}
	return slug, nil
}
