// Package bundles serves product bundles with their products populated.
package bundles

import (
	"net/http"

	"github.com/dalemusser/stratastore/internal/app/store/audit"
	bundlestore "github.com/dalemusser/stratastore/internal/app/store/bundles"
	"github.com/dalemusser/stratastore/internal/app/system/auditlog"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/catalog"
	"github.com/dalemusser/stratastore/internal/app/system/inputval"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves /api/bundles.
type Handler struct {
	svc    *catalog.Service
	audit  *auditlog.Logger
	logger *zap.Logger
}

// NewHandler creates a bundles Handler.
func NewHandler(svc *catalog.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, audit: audit, logger: logger}
}

// Routes mounts the bundle endpoints.
//
//   - GET    /        ?section=<id>&featured=true (admins: &all=true)
//   - GET    /{id}
//   - POST   /        admin
//   - PUT    /{id}    admin
//   - DELETE /{id}    admin
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Get("/{id}", h.get)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireAdmin)
		pr.Post("/", h.create)
		pr.Put("/{id}", h.update)
		pr.Delete("/{id}", h.delete)
	})

	return r
}

func isAdmin(r *http.Request) bool {
	u, ok := auth.CurrentUser(r)
	return ok && u.IsAdmin()
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := bundlestore.ListFilter{ActiveOnly: !(isAdmin(r) && q.Get("all") == "true")}
	if s := q.Get("section"); s != "" {
		id, err := inputval.ObjectID("bundles.List", "section", s)
		if err != nil {
			jsonutil.Fail(w, h.logger, err)
			return
		}
		f.SectionID = &id
	}
	if s := q.Get("featured"); s != "" {
		featured := s == "true"
		f.Featured = &featured
	}

	bundles, err := h.svc.ListBundles(r.Context(), f)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, bundles)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ObjectID("bundles.Get", "bundle id", chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	b, err := h.svc.GetBundle(r.Context(), id, !isAdmin(r))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, b)
}

// bundleInput is the JSON body for create and update. On update an empty
// sectionIds array clears the bundle's sections.
type bundleInput struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Image         *string  `json:"image"`
	OriginalPrice *float64 `json:"originalPrice"`
	DiscountPrice *float64 `json:"discountPrice"`
	ClearDiscount bool     `json:"clearDiscount"`
	ProductIDs    []string `json:"productIds"`
	SectionIDs    []string `json:"sectionIds"`
	IsActive      *bool    `json:"isActive"`
	IsFeatured    *bool    `json:"isFeatured"`
}

func (in bundleInput) toCatalog(op string) (catalog.BundleInput, error) {
	products, err := inputval.ObjectIDs(op, "product", in.ProductIDs)
	if err != nil {
		return catalog.BundleInput{}, err
	}
	sections, err := inputval.ObjectIDs(op, "section", in.SectionIDs)
	if err != nil {
		return catalog.BundleInput{}, err
	}
	return catalog.BundleInput{
		Name:          in.Name,
		Description:   in.Description,
		Image:         in.Image,
		OriginalPrice: in.OriginalPrice,
		DiscountPrice: in.DiscountPrice,
		ClearDiscount: in.ClearDiscount,
		ProductIDs:    products,
		SectionIDs:    sections,
		IsActive:      in.IsActive,
		IsFeatured:    in.IsFeatured,
	}, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	const op = "bundles.Create"

	var in bundleInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	ci, err := in.toCatalog(op)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	b, err := h.svc.CreateBundle(r.Context(), ci)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	h.audit.AdminChange(r, audit.EventContentCreated, "bundles", b.ID.Hex())
	h.logger.Debug("bundle created", zap.String("id", b.ID.Hex()), zap.Int("products", len(b.ProductIDs)))
	jsonutil.Created(w, b)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	const op = "bundles.Update"

	id, err := inputval.ObjectID(op, "bundle id", chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	var in bundleInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	ui, err := in.toCatalog(op)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	b, err := h.svc.UpdateBundle(r.Context(), id, ui)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	h.audit.AdminChange(r, audit.EventContentUpdated, "bundles", b.ID.Hex())
	jsonutil.OK(w, b)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	const op = "bundles.Delete"

	id, err := inputval.ObjectID(op, "bundle id", chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	if err := h.svc.DeleteBundle(r.Context(), id); err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	h.audit.AdminChange(r, audit.EventContentDeleted, "bundles", id.Hex())
	jsonutil.OK(w, map[string]string{"message": "bundle deleted"})
}
