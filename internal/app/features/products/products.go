// Package products serves the product catalog.
package products

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/stratastore/internal/app/store/audit"
	productstore "github.com/dalemusser/stratastore/internal/app/store/products"
	"github.com/dalemusser/stratastore/internal/app/system/auditlog"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/catalog"
	"github.com/dalemusser/stratastore/internal/app/system/inputval"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxListLimit caps ?limit on the public list.
const maxListLimit = 100

// Handler serves /api/products.
type Handler struct {
	svc    *catalog.Service
	audit  *auditlog.Logger
	logger *zap.Logger
}

// NewHandler creates a products Handler.
func NewHandler(svc *catalog.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, audit: audit, logger: logger}
}

// Routes mounts the product endpoints. Reads are public (active products
// only unless an admin asks with ?all=true); writes need an admin.
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
	const op = "products.List"
	q := r.URL.Query()

	f := productstore.ListFilter{
		ActiveOnly: !(isAdmin(r) && q.Get("all") == "true"),
	}
	if s := q.Get("section"); s != "" {
		id, err := inputval.ObjectID(op, "section", s)
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
	if s := q.Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			jsonutil.BadRequest(w, "limit must be a positive number")
			return
		}
		f.Limit = min(n, maxListLimit)
	}

	products, err := h.svc.ListProducts(r.Context(), f)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, products)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ObjectID("products.Get", "product id", chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	p, err := h.svc.GetProduct(r.Context(), id, !isAdmin(r))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, p)
}

// productInput is the JSON body for create and update. Absent fields are
// left alone on update; "clearDiscount": true removes the discount.
type productInput struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Image         *string          `json:"image"`
	SectionIDs    []string         `json:"sectionIds"`
	OriginalPrice *float64         `json:"originalPrice"`
	DiscountPrice *float64         `json:"discountPrice"`
	ClearDiscount bool             `json:"clearDiscount"`
	Files         []models.FileRef `json:"files"`
	IsActive      *bool            `json:"isActive"`
	IsFeatured    *bool            `json:"isFeatured"`
}

func (in productInput) toCatalog(op string) (catalog.ProductInput, error) {
	sections, err := inputval.ObjectIDs(op, "section", in.SectionIDs)
	if err != nil {
		return catalog.ProductInput{}, err
	}
	return catalog.ProductInput{
		Title:         in.Title,
		Description:   in.Description,
		Image:         in.Image,
		SectionIDs:    sections,
		OriginalPrice: in.OriginalPrice,
		DiscountPrice: in.DiscountPrice,
		ClearDiscount: in.ClearDiscount,
		Files:         in.Files,
		IsActive:      in.IsActive,
		IsFeatured:    in.IsFeatured,
	}, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	const op = "products.Create"

	var in productInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	ci, err := in.toCatalog(op)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	p, err := h.svc.CreateProduct(r.Context(), ci)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	h.audit.AdminChange(r, audit.EventContentCreated, "products", p.ID.Hex())
	h.logger.Debug("product created", zap.String("id", p.ID.Hex()))
	jsonutil.Created(w, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	const op = "products.Update"

	id, err := inputval.ObjectID(op, "product id", chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	var in productInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	ui, err := in.toCatalog(op)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	p, err := h.svc.UpdateProduct(r.Context(), id, ui)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	h.audit.AdminChange(r, audit.EventContentUpdated, "products", p.ID.Hex())
	jsonutil.OK(w, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	const op = "products.Delete"

	id, err := inputval.ObjectID(op, "product id", chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	h.audit.AdminChange(r, audit.EventContentDeleted, "products", id.Hex())
	jsonutil.OK(w, map[string]string{"message": "product deleted"})
}
