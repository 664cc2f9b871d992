// Package payment talks to the payment gateway and checks its callbacks.
//
// The gateway is a black box: it opens remote orders for an amount in
// minor currency units and later returns (order id, payment id, signature)
// through the buyer's browser. The signature is an HMAC-SHA256 over
// "<order id>|<payment id>" keyed by the shared secret.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Signature verification failures.
var (
	ErrMissingSecret     = errors.New("payment signing secret is not configured")
	ErrSignatureMismatch = errors.New("payment signature mismatch")
)

// OrderRequest opens a gateway order.
type OrderRequest struct {
	AmountMinor int64  // e.g. paise for INR
	Currency    string // ISO 4217
	Receipt     string // our reference, shown in the gateway dashboard
	Notes       map[string]string
}

// Gateway opens remote orders.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (gatewayOrderID string, err error)
}

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a major-unit price to minor units, rounding half
// away from zero. 19.99 becomes 1999 with no float drift.
func MinorUnits(major float64) int64 {
	return decimal.NewFromFloat(major).Mul(hundred).Round(0).IntPart()
}
