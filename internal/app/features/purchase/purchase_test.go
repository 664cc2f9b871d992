package purchase

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	bundlestore "github.com/dalemusser/stratastore/internal/app/store/bundles"
	orderstore "github.com/dalemusser/stratastore/internal/app/store/orders"
	productstore "github.com/dalemusser/stratastore/internal/app/store/products"
	"github.com/dalemusser/stratastore/internal/app/system/payment"
	purchasesvc "github.com/dalemusser/stratastore/internal/app/system/purchase"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/dalemusser/stratastore/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testSecret = "gateway-test-secret"

type recordingMailer struct {
	mu        sync.Mutex
	codes     map[string]string
	delivered [][]models.FileRef
	failFiles bool
}

func (m *recordingMailer) SendVerificationCode(_ context.Context, email, code string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *recordingMailer) send(files []models.FileRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFiles {
		return errors.New("smtp unavailable")
	}
	m.delivered = append(m.delivered, files)
	return nil
}

func (m *recordingMailer) SendProductFiles(_ context.Context, _, _ string, files []models.FileRef) error {
	return m.send(files)
}

func (m *recordingMailer) SendBundleFiles(_ context.Context, _, _ string, files []models.FileRef) error {
	return m.send(files)
}

type stubGateway struct {
	amounts []int64
}

func (g *stubGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (string, error) {
	g.amounts = append(g.amounts, req.AmountMinor)
	return "order_" + req.Receipt, nil
}

type env struct {
	products *productstore.Store
	bundles  *bundlestore.Store
	orders   *orderstore.Store
	mail     *recordingMailer
	gateway  *stubGateway
	product  chi.Router
	bundle   chi.Router
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)

	e := &env{
		products: productstore.New(db),
		bundles:  bundlestore.New(db),
		orders:   orderstore.New(db),
		mail:     &recordingMailer{codes: map[string]string{}},
		gateway:  &stubGateway{},
	}
	svc := purchasesvc.New(e.orders,
		purchasesvc.StoreCatalog{Products: e.products, Bundles: e.bundles},
		e.mail, e.gateway,
		purchasesvc.WithSecret(testSecret),
		purchasesvc.WithKeyID("rzp_test_key"))

	logger := zap.NewNop()
	e.product = Routes(NewHandler(svc, models.ItemProduct, nil, logger))
	e.bundle = Routes(NewHandler(svc, models.ItemBundle, nil, logger))
	return e
}

func (e *env) addProduct(t *testing.T, title string, price float64, files ...string) models.Product {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := models.Product{
		Title:         title,
		SectionIDs:    []primitive.ObjectID{primitive.NewObjectID()},
		OriginalPrice: price,
		IsActive:      true,
	}
	for _, f := range files {
		p.Files = append(p.Files, models.FileRef{Name: f, URL: "https://files.example.com/" + f})
	}
	p, err := e.products.Create(ctx, p)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func do(router chi.Router, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func post(router chi.Router, path string, body any) *testutil.ResponseRecorder {
	return do(router, testutil.NewJSONRequest(http.MethodPost, path, body))
}

// checkout runs verify-email, verify-code and create-order and returns the
// gateway order id.
func checkout(t *testing.T, e *env, router chi.Router, item map[string]any) string {
	t.Helper()
	email := item["email"].(string)

	rec := post(router, "/verify-email", item)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify-email status = %d, body = %s", rec.Code, rec.Body.String())
	}

	withCode := map[string]any{"code": e.mail.codes[email]}
	for k, v := range item {
		withCode[k] = v
	}
	rec = post(router, "/verify-code", withCode)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify-code status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = post(router, "/create-order", item)
	if rec.Code != http.StatusOK {
		t.Fatalf("create-order status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var co purchasesvc.Checkout
	rec.DecodeJSON(t, &co)
	if co.KeyID != "rzp_test_key" {
		t.Errorf("keyId = %q, want rzp_test_key", co.KeyID)
	}
	return co.GatewayOrderID
}

func TestProductPurchase_EndToEnd(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct(t, "Wedding Invite", 500, "invite.psd")
	item := map[string]any{"email": "buyer@example.com", "productId": p.ID.Hex()}

	gid := checkout(t, e, e.product, item)
	if len(e.gateway.amounts) != 1 || e.gateway.amounts[0] != 50000 {
		t.Fatalf("gateway amounts = %v, want [50000]", e.gateway.amounts)
	}

	rec := post(e.product, "/verify-payment", map[string]any{
		"orderId":   gid,
		"paymentId": "pay_1",
		"signature": payment.Sign(testSecret, gid, "pay_1"),
	})
	rec.AssertStatus(t, http.StatusOK)

	var got orderStatus
	rec.DecodeJSON(t, &got)
	if got.Status != models.OrderDelivered || got.DeliveredAt == nil {
		t.Errorf("order = %+v, want delivered", got)
	}
	if len(e.mail.delivered) != 1 || len(e.mail.delivered[0]) != 1 || e.mail.delivered[0][0].Name != "invite.psd" {
		t.Errorf("delivered = %+v", e.mail.delivered)
	}

	rec = do(e.product, testutil.NewRequest(http.MethodGet, "/status?email=buyer@example.com&productId="+p.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, models.OrderDelivered)
}

func TestBundlePurchase_DeliversFilesInProductOrder(t *testing.T) {
	e := newEnv(t)
	p1 := e.addProduct(t, "P1", 100, "f1")
	p2 := e.addProduct(t, "P2", 200, "f2", "f3")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	b, err := e.bundles.Create(ctx, models.Bundle{
		Name:          "Starter Pack",
		ProductIDs:    []primitive.ObjectID{p1.ID, p2.ID},
		OriginalPrice: 250,
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("create bundle: %v", err)
	}

	gid := checkout(t, e, e.bundle, map[string]any{"email": "buyer@example.com", "bundleId": b.ID.Hex()})
	rec := post(e.bundle, "/verify-payment", map[string]any{
		"orderId":   gid,
		"paymentId": "pay_2",
		"signature": payment.Sign(testSecret, gid, "pay_2"),
	})
	rec.AssertStatus(t, http.StatusOK)

	if len(e.mail.delivered) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(e.mail.delivered))
	}
	var names []string
	for _, f := range e.mail.delivered[0] {
		names = append(names, f.Name)
	}
	if len(names) != 3 || names[0] != "f1" || names[1] != "f2" || names[2] != "f3" {
		t.Errorf("delivered files = %v, want [f1 f2 f3]", names)
	}
}

func TestVerifyPayment_BadSignatureLeavesOrder(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct(t, "Flyer", 99, "flyer.ai")
	gid := checkout(t, e, e.product, map[string]any{"email": "buyer@example.com", "productId": p.ID.Hex()})

	rec := post(e.product, "/verify-payment", map[string]any{
		"orderId":   gid,
		"paymentId": "pay_1",
		"signature": "deadbeef",
	})
	rec.AssertStatus(t, http.StatusBadRequest)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	o, err := e.orders.GetByGatewayOrderID(ctx, gid)
	if err != nil {
		t.Fatalf("GetByGatewayOrderID: %v", err)
	}
	if o.Status != models.OrderVerified {
		t.Errorf("status = %q, want verified", o.Status)
	}
}

func TestVerifyPayment_DeliveryFailureLeavesPaid(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct(t, "Poster", 150, "poster.pdf")
	gid := checkout(t, e, e.product, map[string]any{"email": "buyer@example.com", "productId": p.ID.Hex()})

	e.mail.failFiles = true
	rec := post(e.product, "/verify-payment", map[string]any{
		"orderId":   gid,
		"paymentId": "pay_1",
		"signature": payment.Sign(testSecret, gid, "pay_1"),
	})
	rec.AssertStatus(t, http.StatusInternalServerError)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	o, err := e.orders.GetByGatewayOrderID(ctx, gid)
	if err != nil {
		t.Fatalf("GetByGatewayOrderID: %v", err)
	}
	if o.Status != models.OrderPaid {
		t.Errorf("status = %q, want paid", o.Status)
	}
}

func TestVerifyCode_Errors(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct(t, "Card", 10, "card.png")
	item := map[string]any{"email": "buyer@example.com", "productId": p.ID.Hex()}

	post(e.product, "/verify-email", item).AssertStatus(t, http.StatusOK)

	rec := post(e.product, "/verify-code", map[string]any{"email": "buyer@example.com", "productId": p.ID.Hex(), "code": "000000"})
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "invalid verification code")

	code := e.mail.codes["buyer@example.com"]
	ok := map[string]any{"email": "buyer@example.com", "productId": p.ID.Hex(), "code": code}
	post(e.product, "/verify-code", ok).AssertStatus(t, http.StatusOK)

	// The order is no longer pending, so the same code stops working.
	post(e.product, "/verify-code", ok).AssertStatus(t, http.StatusBadRequest)
}

func TestRequests_Invalid(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct(t, "Card", 10)

	tests := []struct {
		name   string
		router chi.Router
		path   string
		body   any
		want   int
	}{
		{"malformed json", e.product, "/verify-email", `{"email":`, http.StatusBadRequest},
		{"missing product id", e.product, "/verify-email", map[string]any{"email": "a@b.com"}, http.StatusBadRequest},
		{"bad email", e.product, "/verify-email", map[string]any{"email": "nope", "productId": p.ID.Hex()}, http.StatusBadRequest},
		{"unknown product", e.product, "/verify-email", map[string]any{"email": "a@b.com", "productId": primitive.NewObjectID().Hex()}, http.StatusNotFound},
		{"product id on bundle route", e.bundle, "/verify-email", map[string]any{"email": "a@b.com", "productId": p.ID.Hex()}, http.StatusBadRequest},
		{"create order before verify", e.product, "/create-order", map[string]any{"email": "a@b.com", "productId": p.ID.Hex()}, http.StatusNotFound},
		{"payment fields missing", e.product, "/verify-payment", map[string]any{"orderId": "order_x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post(tt.router, tt.path, tt.body).AssertStatus(t, tt.want)
		})
	}
}

func TestStatus_NotFound(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct(t, "Card", 10)

	rec := do(e.product, testutil.NewRequest(http.MethodGet, "/status?email=nobody@example.com&productId="+p.ID.Hex()))
	rec.AssertStatus(t, http.StatusNotFound)
}
