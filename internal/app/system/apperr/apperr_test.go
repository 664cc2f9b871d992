package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid input", Invalid("op", "bad id"), http.StatusBadRequest},
		{"integrity", Integrity("op", "has children"), http.StatusBadRequest},
		{"invalid code", ErrInvalidCode, http.StatusBadRequest},
		{"expired code", fmt.Errorf("confirm: %w", ErrCodeExpired), http.StatusBadRequest},
		{"signature", New("op", ErrInvalidSignature, "signature mismatch"), http.StatusBadRequest},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"not found", NotFound("op", "order"), http.StatusNotFound},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"internal", Internal("op", errors.New("db down")), http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "section is referenced by 3 products",
		Message(Integrity("sections.Delete", "section is referenced by %d products", 3)))
	assert.Equal(t, "order not found", Message(NotFound("purchase.VerifyPayment", "order")))
	assert.Equal(t, "verification code expired", Message(fmt.Errorf("wrapped: %w", ErrCodeExpired)))
	assert.Equal(t, "internal error", Message(Internal("op", errors.New("secret detail"))))
	assert.Equal(t, "internal error", Message(errors.New("raw")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &Error{Op: "orders.Save", Kind: ErrInternal, Err: cause}

	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "orders.Save: internal error: connection reset", err.Error())
	assert.True(t, IsNotFound(NotFound("op", "bundle")))
}
