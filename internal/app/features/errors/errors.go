// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// ErrorLogger wraps the zap logger for request-scoped error logging.
type ErrorLogger struct {
	logger *zap.Logger
}

// NewErrorLogger creates a new ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{logger: logger}
}

// Log logs an error with the request path and method.
func (e *ErrorLogger) Log(r *http.Request, msg string, err error, fields ...zap.Field) {
	all := append([]zap.Field{
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	}, fields...)
	e.logger.Error(msg, all...)
}

// Handler answers router-level failures with the API's JSON error shape.
type Handler struct {
	errLog *ErrorLogger
}

// NewHandler creates a new error Handler.
func NewHandler(errLog *ErrorLogger) *Handler {
	return &Handler{errLog: errLog}
}

// NotFound answers unmatched routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	jsonutil.NotFound(w, "route not found")
}

// MethodNotAllowed answers a known route hit with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	jsonutil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
}

// CSRFFailure is installed as the CSRF middleware's error handler.
func (h *Handler) CSRFFailure(w http.ResponseWriter, r *http.Request) {
	h.errLog.Log(r, "csrf check failed", csrf.FailureReason(r))
	jsonutil.Forbidden(w, "invalid or missing CSRF token")
}
