// Package purchase serves the buyer-facing checkout flow for products and
// bundles. Both prefixes share one handler; only the item id field differs.
package purchase

import (
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"github.com/dalemusser/stratastore/internal/app/system/auditlog"
	"github.com/dalemusser/stratastore/internal/app/system/inputval"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	purchasesvc "github.com/dalemusser/stratastore/internal/app/system/purchase"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves /api/purchase and /api/bundle-purchase.
type Handler struct {
	svc    *purchasesvc.Service
	kind   string
	audit  *auditlog.Logger
	logger *zap.Logger
}

// NewHandler creates a purchase Handler for one item kind
// (models.ItemProduct or models.ItemBundle).
func NewHandler(svc *purchasesvc.Service, kind string, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, kind: kind, audit: audit, logger: logger}
}

// Routes mounts the checkout steps. All of them are public.
//
//   - POST /verify-email    {email, productId|bundleId}
//   - POST /verify-code     {email, productId|bundleId, code}
//   - POST /create-order    {email, productId|bundleId}
//   - POST /verify-payment  {orderId, paymentId, signature}
//   - GET  /status          ?email=&productId=|bundleId=
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/verify-email", h.verifyEmail)
	r.Post("/verify-code", h.verifyCode)
	r.Post("/create-order", h.createOrder)
	r.Post("/verify-payment", h.verifyPayment)
	r.Get("/status", h.status)
	return r
}

// itemInput is shared by the first three steps.
type itemInput struct {
	Email     string `json:"email"`
	ProductID string `json:"productId"`
	BundleID  string `json:"bundleId"`
	Code      string `json:"code"`
}

// ref picks the id field that matches the handler's kind.
func (h *Handler) ref(op, productID, bundleID string) (models.ItemRef, error) {
	raw, label := productID, "productId"
	if h.kind == models.ItemBundle {
		raw, label = bundleID, "bundleId"
	}
	if raw == "" {
		return models.ItemRef{}, apperr.Invalid(op, "%s is required", label)
	}
	id, err := inputval.ObjectID(op, label, raw)
	if err != nil {
		return models.ItemRef{}, err
	}
	return models.ItemRef{Kind: h.kind, ID: id}, nil
}

func (h *Handler) decodeItem(w http.ResponseWriter, r *http.Request, op string) (itemInput, models.ItemRef, bool) {
	var in itemInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return in, models.ItemRef{}, false
	}
	ref, err := h.ref(op, in.ProductID, in.BundleID)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return in, models.ItemRef{}, false
	}
	return in, ref, true
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	in, ref, ok := h.decodeItem(w, r, "purchase.VerifyEmail")
	if !ok {
		return
	}

	o, err := h.svc.RequestVerification(r.Context(), in.Email, ref)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, map[string]any{
		"message": "verification code sent",
		"orderId": o.ID.Hex(),
		"status":  o.Status,
	})
}

func (h *Handler) verifyCode(w http.ResponseWriter, r *http.Request) {
	in, ref, ok := h.decodeItem(w, r, "purchase.VerifyCode")
	if !ok {
		return
	}

	o, err := h.svc.ConfirmCode(r.Context(), in.Email, ref, in.Code)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, map[string]any{
		"verified": true,
		"orderId":  o.ID.Hex(),
		"status":   o.Status,
	})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	in, ref, ok := h.decodeItem(w, r, "purchase.CreateOrder")
	if !ok {
		return
	}

	checkout, err := h.svc.CreateGatewayOrder(r.Context(), in.Email, ref)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, checkout)
}

// paymentInput is what the checkout widget hands back after payment.
type paymentInput struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var in paymentInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}

	o, err := h.svc.VerifyPayment(r.Context(), in.OrderID, in.PaymentID, in.Signature)
	switch {
	case err == nil:
		h.audit.PaymentAccepted(r.Context(), r, in.OrderID, in.PaymentID)
	case errors.Is(err, apperr.ErrInvalidSignature):
		h.audit.PaymentRejected(r.Context(), r, in.OrderID, "invalid signature")
	case o.Status == models.OrderPaid:
		// Payment recorded but the files did not go out.
		h.audit.PaymentAccepted(r.Context(), r, in.OrderID, in.PaymentID)
		h.audit.DeliveryFailed(r.Context(), r, in.OrderID, apperr.Message(err))
	}
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	jsonutil.OK(w, statusView(o))
}

// orderStatus is the buyer-visible slice of an order.
type orderStatus struct {
	OrderID     string     `json:"orderId"`
	Status      string     `json:"status"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
}

func statusView(o models.Order) orderStatus {
	return orderStatus{
		OrderID:     o.ID.Hex(),
		Status:      o.Status,
		Amount:      o.Amount,
		Currency:    o.Currency,
		DeliveredAt: o.DeliveredAt,
	}
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref, err := h.ref("purchase.Status", q.Get("productId"), q.Get("bundleId"))
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}

	o, err := h.svc.GetOrderStatus(r.Context(), q.Get("email"), ref)
	if err != nil {
		jsonutil.Fail(w, h.logger, err)
		return
	}
	jsonutil.OK(w, statusView(o))
}
