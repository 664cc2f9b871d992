// Package contactsettings serves the store's singleton contact details.
package contactsettings

import (
	"net/http"
	"strings"

	"github.com/dalemusser/stratastore/internal/app/store/audit"
	contactsettingsstore "github.com/dalemusser/stratastore/internal/app/store/contactsettings"
	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"github.com/dalemusser/stratastore/internal/app/system/auditlog"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratastore/internal/app/system/inputval"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/stratastore/internal/app/system/normalize"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves /api/contact-settings and /api/admin/contact-settings.
type Handler struct {
	store  *contactsettingsstore.Store
	audit  *auditlog.Logger
	logger *zap.Logger
}

// NewHandler creates a contactsettings Handler.
func NewHandler(store *contactsettingsstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{store: store, audit: audit, logger: logger}
}

// PublicRoutes mounts GET /.
func PublicRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.get)
	return r
}

// AdminRoutes mounts GET / and PUT / behind RequireAdmin.
func AdminRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAdmin)
	r.Get("/", h.get)
	r.Put("/", h.put)
	return r
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	cs, err := h.store.Get(r.Context())
	if err != nil {
		jsonutil.Fail(w, h.logger, apperr.Internal("contactsettings.Get", err))
		return
	}
	jsonutil.OK(w, cs)
}

type settingsInput struct {
	Email         string `json:"email" validate:"required,email" label:"Email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	WhatsApp      string `json:"whatsapp"`
	BusinessHours string `json:"businessHours"`
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	const op = "contactsettings.Save"

	var in settingsInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	in.Email = normalize.Email(in.Email)
	if err := inputval.Check(op, in); err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	saved, err := h.store.Save(r.Context(), models.ContactSettings{
		Email:         in.Email,
		Phone:         strings.TrimSpace(in.Phone),
		Address:       htmlsanitize.Text(in.Address),
		WhatsApp:      strings.TrimSpace(in.WhatsApp),
		BusinessHours: htmlsanitize.Text(in.BusinessHours),
	})
	if err != nil {
		jsonutil.Fail(w, h.logger, apperr.Internal(op, err))
		return
	}

	h.audit.AdminChange(r, audit.EventContentUpdated, "contact-settings", saved.ID.Hex())
	jsonutil.OK(w, saved)
}
