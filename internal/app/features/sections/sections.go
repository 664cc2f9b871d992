// Package sections serves the section hierarchy: flat lists and trees for the
// storefront, and create/update/delete/reorder for admins.
package sections

import (
	"net/http"
	"strings"

	"github.com/dalemusser/stratastore/internal/app/store/audit"
	"github.com/dalemusser/stratastore/internal/app/system/auditlog"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratastore/internal/app/system/inputval"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/stratastore/internal/app/system/sectiontree"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves /api/sections.
type Handler struct {
	mgr    *sectiontree.Manager
	audit  *auditlog.Logger
	logger *zap.Logger
}

// NewHandler creates a sections Handler.
func NewHandler(mgr *sectiontree.Manager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{mgr: mgr, audit: audit, logger: logger}
}

// Routes mounts the section endpoints. Reads are public; writes need an admin.
//
// When mounted at /api/sections:
//   - GET    /                list (?all=true for admins to include inactive)
//   - GET    /hierarchy       forest (?all=true for admins)
//   - GET    /navigation      navbar forest
//   - GET    /homepage        homepage forest
//   - GET    /slug/{slug}     section with breadcrumb
//   - GET    /{id}
//   - POST   /                create
//   - PUT    /{id}            update
//   - DELETE /{id}
//   - POST   /reorder         [{id, displayOrder}]
//   - POST   /navbar-toggle   {sectionId, show}
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Get("/hierarchy", h.hierarchy)
	r.Get("/navigation", h.navigation)
	r.Get("/homepage", h.homepage)
	r.Get("/slug/{slug}", h.getBySlug)
	r.Get("/{id}", h.get)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireAdmin)
		pr.Post("/", h.create)
		pr.Post("/reorder", h.reorder)
		pr.Post("/navbar-toggle", h.navbarToggle)
		pr.Put("/{id}", h.update)
		pr.Delete("/{id}", h.delete)
	})

	return r
}

// includeInactive is true only for admins asking for everything.
func includeInactive(r *http.Request) bool {
	if r.URL.Query().Get("all") != "true" {
		return false
	}
	u, ok := auth.CurrentUser(r)
	return ok && u.IsAdmin()
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sections, err := h.mgr.List(r.Context(), !includeInactive(r))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, sections)
}

func (h *Handler) hierarchy(w http.ResponseWriter, r *http.Request) {
	forest, err := h.mgr.BuildHierarchy(r.Context(), !includeInactive(r))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, emptyForest(forest))
}

func (h *Handler) navigation(w http.ResponseWriter, r *http.Request) {
	forest, err := h.mgr.GetNavigationSections(r.Context())
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, emptyForest(forest))
}

func (h *Handler) homepage(w http.ResponseWriter, r *http.Request) {
	forest, err := h.mgr.GetHomepageSections(r.Context())
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, emptyForest(forest))
}

type slugResponse struct {
	Section     models.Section   `json:"section"`
	Breadcrumbs []models.Section `json:"breadcrumbs"`
}

func (h *Handler) getBySlug(w http.ResponseWriter, r *http.Request) {
	sec, crumbs, err := h.mgr.GetBySlug(r.Context(), strings.ToLower(chi.URLParam(r, "slug")))
	if err == nil && !sec.IsActive && !includeInactive(r) {
		jsonutil.NotFound(w, "section not found")
		return
	}
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, slugResponse{Section: sec, Breadcrumbs: crumbs})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ObjectID("sections.Get", "section id", chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	sec, err := h.mgr.Get(r.Context(), id)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, sec)
}

type createInput struct {
	Name           string  `json:"name" validate:"required,max=120" label:"Name"`
	Slug           string  `json:"slug"`
	Description    string  `json:"description"`
	ParentID       *string `json:"parentId"`
	DisplayOrder   int     `json:"displayOrder"`
	ShowInNavbar   *bool   `json:"showInNavbar"`
	ShowInHomepage *bool   `json:"showInHomepage"`
	IsActive       *bool   `json:"isActive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	const op = "sections.Create"

	var in createInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	if err := inputval.Check(op, in); err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	ci := sectiontree.CreateInput{
		Name:           htmlsanitize.Text(in.Name),
		Slug:           strings.TrimSpace(in.Slug),
		Description:    htmlsanitize.RichText(in.Description),
		DisplayOrder:   in.DisplayOrder,
		ShowInNavbar:   boolOr(in.ShowInNavbar, true),
		ShowInHomepage: boolOr(in.ShowInHomepage, false),
		IsActive:       boolOr(in.IsActive, true),
	}
	if in.ParentID != nil && *in.ParentID != "" {
		pid, err := inputval.ObjectID(op, "parentId", *in.ParentID)
		if err != nil {
			jsonutil.Fail(w, h.logger, err)
			return
		}
		ci.ParentID = &pid
	}

	sec, err := h.mgr.Create(r.Context(), ci)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	h.audit.AdminChange(r, audit.EventContentCreated, "sections", sec.ID.Hex())
	h.logger.Debug("section created", zap.String("id", sec.ID.Hex()), zap.String("slug", sec.Slug))
	jsonutil.Created(w, sec)
}

// updateInput is a partial update. An empty parentId or moveToRoot detaches
// the section from its parent.
type updateInput struct {
	Name           *string `json:"name"`
	Slug           *string `json:"slug"`
	Description    *string `json:"description"`
	ParentID       *string `json:"parentId"`
	MoveToRoot     bool    `json:"moveToRoot"`
	DisplayOrder   *int    `json:"displayOrder"`
	ShowInNavbar   *bool   `json:"showInNavbar"`
	ShowInHomepage *bool   `json:"showInHomepage"`
	IsActive       *bool   `json:"isActive"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	const op = "sections.Update"

	id, err := inputval.ObjectID(op, "section id", chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	var in updateInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	ui := sectiontree.UpdateInput{
		Slug:           in.Slug,
		DisplayOrder:   in.DisplayOrder,
		ShowInNavbar:   in.ShowInNavbar,
		ShowInHomepage: in.ShowInHomepage,
		IsActive:       in.IsActive,
		MoveToRoot:     in.MoveToRoot,
	}
	if in.Name != nil {
		name := htmlsanitize.Text(*in.Name)
		ui.Name = &name
	}
	if in.Description != nil {
		desc := htmlsanitize.RichText(*in.Description)
		ui.Description = &desc
	}
	if in.ParentID != nil {
		if *in.ParentID == "" {
			ui.MoveToRoot = true
		} else {
			pid, err := inputval.ObjectID(op, "parentId", *in.ParentID)
			if err != nil {
				jsonutil.Fail(w, h.logger, err)
				return
			}
			ui.ParentID = &pid
		}
	}

	sec, err := h.mgr.Update(r.Context(), id, ui)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	h.audit.AdminChange(r, audit.EventContentUpdated, "sections", sec.ID.Hex())
	jsonutil.OK(w, sec)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	const op = "sections.Delete"

	id, err := inputval.ObjectID(op, "section id", chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	if err := h.mgr.Delete(r.Context(), id); err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	h.audit.AdminChange(r, audit.EventContentDeleted, "sections", id.Hex())
	jsonutil.OK(w, map[string]string{"message": "section deleted"})
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	const op = "sections.Reorder"

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
	if err := h.mgr.Reorder(r.Context(), positions); err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	h.audit.AdminChange(r, audit.EventContentUpdated, "sections", "reorder")
	jsonutil.OK(w, map[string]any{"message": "sections reordered", "count": len(positions)})
}

type navbarInput struct {
	SectionID string `json:"sectionId" validate:"required,objectid" label:"Section"`
	Show      *bool  `json:"show"`
}

func (h *Handler) navbarToggle(w http.ResponseWriter, r *http.Request) {
	const op = "sections.SetNavbarVisibility"

	var in navbarInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	if err := inputval.Check(op, in); err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	if in.Show == nil {
		jsonutil.BadRequest(w, "show is required")
		return
	}
	id, _ := primitive.ObjectIDFromHex(in.SectionID)

	changed, err := h.mgr.SetNavbarVisibility(r.Context(), id, *in.Show)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	h.audit.AdminChange(r, audit.EventContentUpdated, "sections", id.Hex())
	jsonutil.OK(w, map[string]any{"updated": changed, "show": *in.Show})
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func emptyForest(f []*models.SectionNode) []*models.SectionNode {
	if f == nil {
		return []*models.SectionNode{}
	}
	return f
}
