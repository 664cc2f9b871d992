package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"
)

// Razorpay is a Gateway backed by the Razorpay orders API.
type Razorpay struct {
	client *razorpay.Client
	keyID  string
	logger *zap.Logger
}

// NewRazorpay creates a Razorpay gateway client.
func NewRazorpay(keyID, keySecret string, logger *zap.Logger) *Razorpay {
	return &Razorpay{
		client: razorpay.NewClient(keyID, keySecret),
		keyID:  keyID,
		logger: logger,
	}
}

// KeyID returns the public key the checkout widget needs.
func (r *Razorpay) KeyID() string {
	return r.keyID
}

// CreateOrder opens a Razorpay order and returns its id.
func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}

	body, err := r.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay create order: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return "", fmt.Errorf("razorpay create order: response has no id")
	}

	r.logger.Debug("gateway order created",
		zap.String("gateway_order_id", id),
		zap.Int64("amount_minor", req.AmountMinor),
		zap.String("receipt", req.Receipt))
	return id, nil
}
