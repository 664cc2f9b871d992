// Package adminorders lets operators inspect orders and resend deliveries
// for orders stuck in paid.
package adminorders

import (
	"net/http"
	"strconv"

	orderstore "github.com/dalemusser/stratastore/internal/app/store/orders"
	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"github.com/dalemusser/stratastore/internal/app/system/auditlog"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/inputval"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/stratastore/internal/app/system/normalize"
	purchasesvc "github.com/dalemusser/stratastore/internal/app/system/purchase"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const defaultPageSize = 50

// Handler serves /api/admin/orders.
type Handler struct {
	orders *orderstore.Store
	svc    *purchasesvc.Service
	audit  *auditlog.Logger
	logger *zap.Logger
}

// NewHandler creates an adminorders Handler.
func NewHandler(orders *orderstore.Store, svc *purchasesvc.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{orders: orders, svc: svc, audit: audit, logger: logger}
}

// Routes mounts the order endpoints behind RequireAdmin.
//
//   - GET  /              ?status=&email=&page=&limit=
//   - POST /{id}/resend
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAdmin)
	r.Get("/", h.list)
	r.Post("/{id}/resend", h.resend)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := orderstore.ListFilter{
		Status: normalize.Token(q.Get("status")),
		Email:  normalize.Email(q.Get("email")),
		Limit:  defaultPageSize,
	}
	if f.Status != "" && !models.IsValidOrderStatus(f.Status) {
		jsonutil.BadRequest(w, "unknown order status")
		return
	}
	if s := q.Get("page"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			jsonutil.BadRequest(w, "page must be a positive number")
			return
		}
		f.Page = n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			jsonutil.BadRequest(w, "limit must be a positive number")
			return
		}
		f.Limit = min(n, 200)
	}

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		jsonutil.Fail(w, h.logger, apperr.Internal("adminorders.List", err))
		return
	}
	jsonutil.OK(w, orders)
}

func (h *Handler) resend(w http.ResponseWriter, r *http.Request) {
	const op = "adminorders.Resend"

	id, err := inputval.ObjectID(op, "order id", chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	var actor auth.SessionUser
	if u, ok := auth.CurrentUser(r); ok {
		actor = *u
	}

	o, err := h.svc.ResendDelivery(r.Context(), id)
	if err != nil {
		h.audit.OrderResent(r.Context(), r, actor.UserID(), id.Hex(), false, apperr.Message(err))
		jsonutil.Fail(w, h.logger, err)
		return
	}

	h.audit.OrderResent(r.Context(), r, actor.UserID(), id.Hex(), true, "")
	h.logger.Info("order delivery resent",
		zap.String("order_id", id.Hex()),
		zap.String("actor", actor.Email))
	jsonutil.OK(w, o)
}
