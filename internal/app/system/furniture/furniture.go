// Package furniture serves the ordered page-furniture collections (hero
// slides, footer links, social links). Each feature package supplies a
// Resource describing its item type; the handlers here do the rest.
package furniture

import (
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/stratastore/internal/app/store/audit"
	contentstore "github.com/dalemusser/stratastore/internal/app/store/content"
	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"github.com/dalemusser/stratastore/internal/app/system/auditlog"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/inputval"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/stratastore/internal/app/system/seeding"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Resource describes one collection.
type Resource[T contentstore.Item] struct {
	// Entity names the collection in audit events and logs, e.g. "hero-slides".
	Entity string
	// Noun is the singular used in messages, e.g. "hero slide".
	Noun string

	Store *contentstore.Store[T]

	// Create decodes and validates a new item from the request body.
	Create func(op string, r *http.Request) (T, error)
	// Update decodes a partial update into the fields to set.
	Update func(op string, r *http.Request) (bson.M, error)
	// Defaults picks this collection's seed items.
	Defaults func(seeding.Defaults) []T
}

// Handler serves one Resource.
type Handler[T contentstore.Item] struct {
	res    Resource[T]
	audit  *auditlog.Logger
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a Handler for res.
func NewHandler[T contentstore.Item](res Resource[T], audit *auditlog.Logger, logger *zap.Logger) *Handler[T] {
	return &Handler[T]{res: res, audit: audit, logger: logger, now: time.Now}
}

// PublicRoutes mounts the storefront read: GET / returns active items.
func PublicRoutes[T contentstore.Item](h *Handler[T]) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listActive)
	return r
}

// AdminRoutes mounts the admin endpoints behind RequireAdmin.
//
//   - GET    /          all items, active or not
//   - POST   /
//   - PUT    /{id}
//   - DELETE /{id}
//   - POST   /reorder   [{id, order}]
//   - POST   /seed      insert defaults into an empty collection
func AdminRoutes[T contentstore.Item](h *Handler[T], sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAdmin)
	r.Get("/", h.listAll)
	r.Post("/", h.create)
	r.Post("/reorder", h.reorder)
	r.Post("/seed", h.seed)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	return r
}

func (h *Handler[T]) op(action string) string {
	return h.res.Entity + "." + action
}

func (h *Handler[T]) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	items, err := h.res.Store.List(r.Context(), activeOnly)
	if err != nil {
		jsonutil.Fail(w, h.logger, apperr.Internal(h.op("List"), err))
		return
	}
	jsonutil.OK(w, items)
}

func (h *Handler[T]) listActive(w http.ResponseWriter, r *http.Request) { h.list(w, r, true) }
func (h *Handler[T]) listAll(w http.ResponseWriter, r *http.Request)    { h.list(w, r, false) }

func (h *Handler[T]) create(w http.ResponseWriter, r *http.Request) {
	op := h.op("Create")

	item, err := h.res.Create(op, r)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	created, err := h.res.Store.Create(r.Context(), item)
	if err != nil {
		jsonutil.Fail(w, h.logger, apperr.Internal(op, err))
		return
	}

	h.audit.AdminChange(r, audit.EventContentCreated, h.res.Entity, idOf(created))
	jsonutil.Created(w, created)
}

func (h *Handler[T]) update(w http.ResponseWriter, r *http.Request) {
	op := h.op("Update")

	id, err := inputval.ObjectID(op, h.res.Noun+" id", chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	set, err := h.res.Update(op, r)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	updated, err := h.res.Store.Update(r.Context(), id, set)
	if errors.Is(err, mongo.ErrNoDocuments) {
		jsonutil.Fail(w, h.logger, apperr.NotFound(op, h.res.Noun))
		return
	}
	if err != nil {
		jsonutil.Fail(w, h.logger, apperr.Internal(op, err))
		return
	}

	h.audit.AdminChange(r, audit.EventContentUpdated, h.res.Entity, id.Hex())
	jsonutil.OK(w, updated)
}

func (h *Handler[T]) delete(w http.ResponseWriter, r *http.Request) {
	op := h.op("Delete")

	id, err := inputval.ObjectID(op, h.res.Noun+" id", chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	err = h.res.Store.Delete(r.Context(), id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		jsonutil.Fail(w, h.logger, apperr.NotFound(op, h.res.Noun))
		return
	}
	if err != nil {
		jsonutil.Fail(w, h.logger, apperr.Internal(op, err))
		return
	}

	h.audit.AdminChange(r, audit.EventContentDeleted, h.res.Entity, id.Hex())
	jsonutil.OK(w, map[string]string{"message": h.res.Noun + " deleted"})
}

func (h *Handler[T]) reorder(w http.ResponseWriter, r *http.Request) {
	op := h.op("Reorder")

	var in []inputval.PositionInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	positions, err := inputval.Positions(op, in)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	if err := h.res.Store.Reorder(r.Context(), positions); err != nil {
		jsonutil.Fail(w, h.logger, apperr.Internal(op, err))
		return
	}

	h.audit.AdminChange(r, audit.EventContentUpdated, h.res.Entity, "reorder")
	jsonutil.OK(w, map[string]any{"message": "order updated", "count": len(positions)})
}

func (h *Handler[T]) seed(w http.ResponseWriter, r *http.Request) {
	op := h.op("Seed")

	defaults, err := seeding.Load(h.now())
	if err != nil {
		jsonutil.Fail(w, h.logger, apperr.Internal(op, err))
		return
	}
	n, err := h.res.Store.Seed(r.Context(), h.res.Defaults(defaults))
	if err != nil {
		jsonutil.Fail(w, h.logger, apperr.Internal(op, err))
		return
	}
	if n == 0 {
		jsonutil.OK(w, map[string]any{"message": "collection already has items", "inserted": 0})
		return
	}

	h.audit.AdminChange(r, audit.EventContentCreated, h.res.Entity, "seed")
	h.logger.Info("seeded defaults", zap.String("collection", h.res.Entity), zap.Int("count", n))
	jsonutil.Created(w, map[string]any{"message": "defaults inserted", "inserted": n})
}

func idOf[T contentstore.Item](item T) string {
	switch v := any(item).(type) {
	case models.HeroSlide:
		return v.ID.Hex()
	case models.FooterLink:
		return v.ID.Hex()
	case models.SocialMedia:
		return v.ID.Hex()
	}
	return ""
}

// DecodeError is what Create and Update return for an unreadable body.
func DecodeError(op string) error {
	return apperr.Invalid(op, "invalid JSON body")
}

// BoolOr returns *b, or def when b is nil.
func BoolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// IntOr returns *n, or def when n is nil.
func IntOr(n *int, def int) int {
	if n == nil {
		return def
	}
	return *n
}
