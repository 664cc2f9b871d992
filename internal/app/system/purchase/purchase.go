// Package purchase takes a buyer from an email address to delivered files
// for exactly one product or one bundle.
//
// An order moves pending -> verified -> paid -> delivered and never skips a
// state. Requesting a new code resets the (email, item) order to pending.
// A failed delivery leaves the order in paid for an operator to resend.
package purchase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"github.com/dalemusser/stratastore/internal/app/system/inputval"
	"github.com/dalemusser/stratastore/internal/app/system/normalize"
	"github.com/dalemusser/stratastore/internal/app/system/payment"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultCodeTTL is how long a verification code stays valid after it is issued.
const DefaultCodeTTL = 10 * time.Minute

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "INR"

// OrderStore persists orders. *orderstore.Store satisfies it.
type OrderStore interface {
	UpsertPending(ctx context.Context, email string, item models.ItemRef, code string) (models.Order, error)
	Find(ctx context.Context, email string, item models.ItemRef) (models.Order, error)
	FindPendingWithCode(ctx context.Context, email string, item models.ItemRef, code string) (models.Order, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (models.Order, error)
	Transition(ctx context.Context, id primitive.ObjectID, from, to string) error
	SetGatewayOrder(ctx context.Context, id primitive.ObjectID, gatewayOrderID string, amount float64, currency string) error
	MarkPaid(ctx context.Context, id primitive.ObjectID, gatewayOrderID, paymentID string) error
	MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// Catalog resolves the items being purchased. Missing items are
// reported with mongo.ErrNoDocuments.
type Catalog interface {
	Product(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	Bundle(ctx context.Context, id primitive.ObjectID) (models.Bundle, error)
	ProductsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
}

// Mailer delivers codes and files. *mailer.Mailer satisfies it.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, code string, expiryMin int) error
	SendProductFiles(ctx context.Context, email, title string, files []models.FileRef) error
	SendBundleFiles(ctx context.Context, email, bundleName string, files []models.FileRef) error
}

// Limiter counts verification requests per email and item. *ratelimit.Store
// satisfies it.
type Limiter interface {
	Allow(ctx context.Context, id string) (bool, *time.Time)
}

// Service runs the purchase flow.
type Service struct {
	orders   OrderStore
	catalog  Catalog
	mail     Mailer
	gateway  payment.Gateway
	limiter  Limiter
	secret   string
	keyID    string
	currency string
	codeTTL  time.Duration
	now      func() time.Time
	newCode  func() (string, error)
	log      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSecret sets the gateway signing secret. Without it every payment is rejected.
func WithSecret(secret string) Option { return func(s *Service) { s.secret = secret } }

// WithKeyID sets the public key id handed to the checkout widget.
func WithKeyID(keyID string) Option { return func(s *Service) { s.keyID = keyID } }

// WithCurrency sets the ISO 4217 currency for gateway orders.
func WithCurrency(currency string) Option {
	return func(s *Service) {
		if c := normalize.Currency(currency); c != "" {
			s.currency = c
		}
	}
}

// WithLimiter rate limits RequestVerification per email.
func WithLimiter(l Limiter) Option { return func(s *Service) { s.limiter = l } }

// WithCodeTTL overrides the code freshness window.
func WithCodeTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.codeTTL = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option { return func(s *Service) { s.log = log } }

// New creates a purchase Service.
func New(orders OrderStore, catalog Catalog, mail Mailer, gateway payment.Gateway, opts ...Option) *Service {
	s := &Service{
		orders:   orders,
		catalog:  catalog,
		mail:     mail,
		gateway:  gateway,
		currency: DefaultCurrency,
		codeTTL:  DefaultCodeTTL,
		now:      time.Now,
		newCode:  GenerateCode,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var codeSpan = big.NewInt(900000)

// GenerateCode returns a uniformly random code in [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// item is the resolved target of an order.
type item struct {
	name   string
	price  float64
	files  []models.FileRef
	bundle bool
}

// RequestVerification issues a fresh code for (email, ref) and emails it.
// Any earlier code for the same pair stops working.
func (s *Service) RequestVerification(ctx context.Context, email string, ref models.ItemRef) (models.Order, error) {
	const op = "purchase.RequestVerification"

	email, err := checkEmail(op, email)
	if err != nil {
		return models.Order{}, err
	}
	if _, err := s.resolve(ctx, op, ref, false); err != nil {
		return models.Order{}, err
	}
	if s.limiter != nil {
		if ok, until := s.limiter.Allow(ctx, limitKey(email, ref)); !ok {
			msg := "too many verification requests, try again later"
			if until != nil {
				msg = fmt.Sprintf("too many verification requests, try again after %s", until.UTC().Format(time.RFC3339))
			}
			return models.Order{}, apperr.New(op, apperr.ErrRateLimited, "%s", msg)
		}
	}

	code, err := s.newCode()
	if err != nil {
		return models.Order{}, apperr.Internal(op, err)
	}
	o, err := s.orders.UpsertPending(ctx, email, ref, code)
	if err != nil {
		return models.Order{}, apperr.Internal(op, err)
	}
	if err := s.mail.SendVerificationCode(ctx, email, code, int(s.codeTTL/time.Minute)); err != nil {
		return models.Order{}, apperr.Internal(op, err)
	}

	s.log.Info("verification code issued",
		zap.String("order_id", o.ID.Hex()),
		zap.String("item_kind", ref.Kind),
		zap.String("item_id", ref.ID.Hex()))
	return o, nil
}

// ConfirmCode moves the pending order for (email, ref) to verified when
// code matches the latest issued code and is still fresh.
func (s *Service) ConfirmCode(ctx context.Context, email string, ref models.ItemRef, code string) (models.Order, error) {
	const op = "purchase.ConfirmCode"

	email, err := checkEmail(op, email)
	if err != nil {
		return models.Order{}, err
	}
	if err := checkRef(op, ref); err != nil {
		return models.Order{}, err
	}
	code = normalize.Code(code)
	if code == "" {
		return models.Order{}, apperr.Invalid(op, "code is required")
	}

	o, err := s.orders.FindPendingWithCode(ctx, email, ref, code)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, apperr.New(op, apperr.ErrInvalidCode, "invalid verification code")
	}
	if err != nil {
		return models.Order{}, apperr.Internal(op, err)
	}
	if s.now().Sub(o.UpdatedAt) > s.codeTTL {
		return models.Order{}, apperr.New(op, apperr.ErrCodeExpired, "verification code has expired")
	}

	err = s.orders.Transition(ctx, o.ID, models.OrderPending, models.OrderVerified)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Another request confirmed or reset the order first.
		return models.Order{}, apperr.New(op, apperr.ErrInvalidCode, "invalid verification code")
	}
	if err != nil {
		return models.Order{}, apperr.Internal(op, err)
	}
	o.Status = models.OrderVerified
	return o, nil
}

// Checkout is what the browser needs to open the gateway's payment widget.
type Checkout struct {
	OrderID        string `json:"orderId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	Amount         int64  `json:"amount"` // minor units
	Currency       string `json:"currency"`
	KeyID          string `json:"keyId,omitempty"`
}

// CreateGatewayOrder opens a gateway order for the verified order of
// (email, ref). The order stays verified.
func (s *Service) CreateGatewayOrder(ctx context.Context, email string, ref models.ItemRef) (Checkout, error) {
	const op = "purchase.CreateGatewayOrder"

	email, err := checkEmail(op, email)
	if err != nil {
		return Checkout{}, err
	}
	if err := checkRef(op, ref); err != nil {
		return Checkout{}, err
	}

	o, err := s.orders.Find(ctx, email, ref)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Checkout{}, apperr.NotFound(op, "order")
	}
	if err != nil {
		return Checkout{}, apperr.Internal(op, err)
	}
	if o.Status != models.OrderVerified {
		return Checkout{}, apperr.Invalid(op, "email has not been verified for this item")
	}

	it, err := s.resolve(ctx, op, ref, false)
	if err != nil {
		return Checkout{}, err
	}
	minor := payment.MinorUnits(it.price)
	if minor <= 0 {
		return Checkout{}, apperr.Invalid(op, "item has no payable price")
	}

	gid, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		AmountMinor: minor,
		Currency:    s.currency,
		Receipt:     o.ID.Hex(),
		Notes: map[string]string{
			"email":     email,
			"item_kind": ref.Kind,
			"item_id":   ref.ID.Hex(),
		},
	})
	if err != nil {
		return Checkout{}, apperr.Internal(op, err)
	}

	if err := s.orders.SetGatewayOrder(ctx, o.ID, gid, it.price, s.currency); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Checkout{}, apperr.Invalid(op, "email has not been verified for this item")
		}
		return Checkout{}, apperr.Internal(op, err)
	}

	s.log.Info("gateway order opened",
		zap.String("order_id", o.ID.Hex()),
		zap.String("gateway_order_id", gid),
		zap.Int64("amount_minor", minor))

	return Checkout{
		OrderID:        o.ID.Hex(),
		GatewayOrderID: gid,
		Amount:         minor,
		Currency:       s.currency,
		KeyID:          s.keyID,
	}, nil
}

// VerifyPayment checks the gateway's signature, marks the order paid and
// delivers its files. When delivery fails the order stays paid and an
// internal error is returned.
func (s *Service) VerifyPayment(ctx context.Context, gatewayOrderID, paymentID, signature string) (models.Order, error) {
	const op = "purchase.VerifyPayment"

	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return models.Order{}, apperr.Invalid(op, "order id, payment id and signature are required")
	}

	if err := payment.VerifySignature(s.secret, gatewayOrderID, paymentID, signature); err != nil {
		if errors.Is(err, payment.ErrMissingSecret) {
			s.log.Error("payment rejected: signing secret not configured",
				zap.String("gateway_order_id", gatewayOrderID))
		} else {
			s.log.Warn("payment rejected: signature mismatch",
				zap.String("gateway_order_id", gatewayOrderID))
		}
		return models.Order{}, &apperr.Error{Op: op, Kind: apperr.ErrInvalidSignature, Message: "invalid payment signature", Err: err}
	}

	o, err := s.orders.GetByGatewayOrderID(ctx, gatewayOrderID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, apperr.NotFound(op, "order")
	}
	if err != nil {
		return models.Order{}, apperr.Internal(op, err)
	}

	switch o.Status {
	case models.OrderDelivered:
		return o, nil
	case models.OrderVerified:
		err := s.orders.MarkPaid(ctx, o.ID, gatewayOrderID, paymentID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return s.alreadyHandled(ctx, op, o.ID)
		}
		if err != nil {
			return models.Order{}, apperr.Internal(op, err)
		}
		o.Status = models.OrderPaid
		o.PaymentID = paymentID
		s.log.Info("order paid",
			zap.String("order_id", o.ID.Hex()),
			zap.String("payment_id", paymentID))
	case models.OrderPaid:
		// A retried callback; delivery is attempted again below.
	default:
		return models.Order{}, apperr.Invalid(op, "order is not awaiting payment")
	}

	return s.deliver(ctx, op, o)
}

// alreadyHandled answers a payment callback whose order moved on after it
// was read. Another callback that paid it wins; a reset to pending does not
// accept the payment.
func (s *Service) alreadyHandled(ctx context.Context, op string, id primitive.ObjectID) (models.Order, error) {
	cur, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, apperr.Internal(op, err)
	}
	switch cur.Status {
	case models.OrderPaid, models.OrderDelivered:
		s.log.Info("payment callback already handled",
			zap.String("order_id", id.Hex()), zap.String("status", cur.Status))
		return cur, nil
	}
	return models.Order{}, apperr.Invalid(op, "order is not awaiting payment")
}

// ResendDelivery emails the files of a paid or delivered order again.
// A paid order becomes delivered when the email goes out.
func (s *Service) ResendDelivery(ctx context.Context, orderID primitive.ObjectID) (models.Order, error) {
	const op = "purchase.ResendDelivery"

	o, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, apperr.NotFound(op, "order")
	}
	if err != nil {
		return models.Order{}, apperr.Internal(op, err)
	}
	if o.Status != models.OrderPaid && o.Status != models.OrderDelivered {
		return models.Order{}, apperr.Integrity(op, "order has not been paid")
	}
	return s.deliver(ctx, op, o)
}

// GetOrderStatus returns the order for (email, ref) so a buyer can resume.
func (s *Service) GetOrderStatus(ctx context.Context, email string, ref models.ItemRef) (models.Order, error) {
	const op = "purchase.GetOrderStatus"

	email, err := checkEmail(op, email)
	if err != nil {
		return models.Order{}, err
	}
	if err := checkRef(op, ref); err != nil {
		return models.Order{}, err
	}
	o, err := s.orders.Find(ctx, email, ref)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, apperr.NotFound(op, "order")
	}
	if err != nil {
		return models.Order{}, apperr.Internal(op, err)
	}
	return o, nil
}

// deliver sends the order's files and, for a paid order, records delivery.
func (s *Service) deliver(ctx context.Context, op string, o models.Order) (models.Order, error) {
	ref := o.Item()
	it, err := s.resolve(ctx, op, ref, true)
	if err != nil {
		s.log.Error("delivery failed: item unavailable",
			zap.String("order_id", o.ID.Hex()), zap.Error(err))
		return o, err
	}

	if it.bundle {
		err = s.mail.SendBundleFiles(ctx, o.Email, it.name, it.files)
	} else {
		err = s.mail.SendProductFiles(ctx, o.Email, it.name, it.files)
	}
	if err != nil {
		s.log.Error("delivery failed; order left paid",
			zap.String("order_id", o.ID.Hex()), zap.Error(err))
		return o, apperr.Internal(op, err)
	}

	if o.Status == models.OrderDelivered {
		return o, nil
	}
	at := s.now()
	err = s.orders.MarkDelivered(ctx, o.ID, at)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// A concurrent delivery recorded it first.
		if cur, gerr := s.orders.GetByID(ctx, o.ID); gerr == nil && cur.Status == models.OrderDelivered {
			return cur, nil
		}
	}
	if err != nil {
		return o, apperr.Internal(op, err)
	}
	o.Status = models.OrderDelivered
	o.DeliveredAt = &at
	s.log.Info("order delivered",
		zap.String("order_id", o.ID.Hex()),
		zap.Int("files", len(it.files)))
	return o, nil
}

// resolve loads the item behind ref. Inactive items are refused unless
// forDelivery is set, since a buyer who already paid still gets the files.
func (s *Service) resolve(ctx context.Context, op string, ref models.ItemRef, forDelivery bool) (item, error) {
	if err := checkRef(op, ref); err != nil {
		return item{}, err
	}

	if ref.Kind == models.ItemProduct {
		p, err := s.catalog.Product(ctx, ref.ID)
		if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && !p.IsActive && !forDelivery) {
			return item{}, apperr.NotFound(op, "product")
		}
		if err != nil {
			return item{}, apperr.Internal(op, err)
		}
		return item{name: p.Title, price: p.PayablePrice(), files: p.Files}, nil
	}

	b, err := s.catalog.Bundle(ctx, ref.ID)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && !b.IsActive && !forDelivery) {
		return item{}, apperr.NotFound(op, "bundle")
	}
	if err != nil {
		return item{}, apperr.Internal(op, err)
	}
	it := item{name: b.Name, price: b.PayablePrice(), bundle: true}
	if !forDelivery {
		return it, nil
	}

	products, err := s.catalog.ProductsByIDs(ctx, b.ProductIDs)
	if err != nil {
		return item{}, apperr.Internal(op, err)
	}
	for _, p := range products {
		it.files = append(it.files, p.Files...)
	}
	return it, nil
}

// limitKey is the verification budget's key: one per buyer and item.
func limitKey(email string, ref models.ItemRef) string {
	return email + "|" + ref.Kind + ":" + ref.ID.Hex()
}

func checkEmail(op, email string) (string, error) {
	email = normalize.Email(email)
	if email == "" {
		return "", apperr.Invalid(op, "email is required")
	}
	if !inputval.IsValidEmail(email) {
		return "", apperr.Invalid(op, "email address is not valid")
	}
	return email, nil
}

func checkRef(op string, ref models.ItemRef) error {
	if ref.Kind != models.ItemProduct && ref.Kind != models.ItemBundle {
		return apperr.Invalid(op, "unknown item kind %q", ref.Kind)
	}
	if ref.ID.IsZero() {
		return apperr.Invalid(op, "%s id is required", ref.Kind)
	}
	return nil
}
