package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		major float64
		want  int64
	}{
		{500, 50000},
		{19.99, 1999},
		{0.1, 10},
		{1234.565, 123457},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MinorUnits(tt.major), "MinorUnits(%v)", tt.major)
	}
}

func TestVerifySignature(t *testing.T) {
	const secret = "s3cr3t"
	good := Sign(secret, "order_123", "pay_456")

	assert.NoError(t, VerifySignature(secret, "order_123", "pay_456", good))
	assert.ErrorIs(t, VerifySignature(secret, "order_123", "pay_999", good), ErrSignatureMismatch)
	assert.ErrorIs(t, VerifySignature(secret, "order_123", "pay_456", "deadbeef"), ErrSignatureMismatch)
	assert.ErrorIs(t, VerifySignature("", "order_123", "pay_456", good), ErrMissingSecret)
	assert.ErrorIs(t, VerifySignature("", "order_123", "pay_456", Sign("", "order_123", "pay_456")), ErrMissingSecret)
}

func TestSign_Deterministic(t *testing.T) {
	assert.Len(t, Sign("key", "order_A", "pay_B"), 64)
	assert.Equal(t, Sign("key", "order_A", "pay_B"), Sign("key", "order_A", "pay_B"))
	assert.NotEqual(t, Sign("key", "order_A", "pay_B"), Sign("key", "order_Ap", "ay_B"))
}
