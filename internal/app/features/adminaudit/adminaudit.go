// Package adminaudit exposes the audit trail to admins, e.g. to follow a
// payment dispute through its gateway order id.
package adminaudit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/stratastore/internal/app/store/audit"
	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/stratastore/internal/app/system/normalize"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	store  *audit.Store
	logger *zap.Logger
}

func NewHandler(store *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Routes mounts GET / behind RequireAdmin.
//
//	?category=&eventType=&subject=&since=<RFC3339>&page=&limit=
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAdmin)
	r.Get("/", h.list)
	return r
}

type page struct {
	Events []audit.Event `json:"events"`
	Total  int64         `json:"total"`
	Page   int64         `json:"page"`
	Limit  int64         `json:"limit"`
}

func positive(q string, def int64) (int64, bool) {
	if q == "" {
		return def, true
	}
	n, err := strconv.ParseInt(q, 10, 64)
	return n, err == nil && n > 0
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pg, ok := positive(q.Get("page"), 1)
	if !ok {
		jsonutil.BadRequest(w, "page must be a positive number")
		return
	}
	limit, ok := positive(q.Get("limit"), 50)
	if !ok {
		jsonutil.BadRequest(w, "limit must be a positive number")
		return
	}
	limit = min(limit, audit.MaxPage)

	f := audit.Filter{
		Category:  normalize.Token(q.Get("category")),
		EventType: normalize.Token(q.Get("eventType")),
		Subject:   q.Get("subject"),
		Limit:     limit,
		Skip:      (pg - 1) * limit,
	}
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			jsonutil.BadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		f.Since = t
	}

	events, err := h.store.Find(r.Context(), f)
	if err != nil {
		jsonutil.Fail(w, h.logger, apperr.Internal("adminaudit.List", err))
		return
	}
	total, err := h.store.Count(r.Context(), f)
	if err != nil {
		jsonutil.Fail(w, h.logger, apperr.Internal("adminaudit.Count", err))
		return
	}
	jsonutil.OK(w, page{Events: events, Total: total, Page: pg, Limit: limit})
}
