// Package jsonutil writes the API's JSON responses and reads its JSON bodies.
// Every error body has the shape {"error": "<message>"}.
package jsonutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies read by Decode.
const maxBodyBytes = 1 << 20

// ErrTrailingData is returned by Decode when the body holds more than one
// JSON value.
var ErrTrailingData = errors.New("unexpected data after JSON body")

type errorBody struct {
	Error string `json:"error"`
}

// JSON writes data with status. A nil data writes headers only.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// OK writes data with 200.
func OK(w http.ResponseWriter, data any) { JSON(w, http.StatusOK, data) }

// Created writes data with 201.
func Created(w http.ResponseWriter, data any) { JSON(w, http.StatusCreated, data) }

// Error writes {"error": message} with status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Error: message})
}

func BadRequest(w http.ResponseWriter, message string)      { Error(w, http.StatusBadRequest, message) }
func Unauthorized(w http.ResponseWriter, message string)    { Error(w, http.StatusUnauthorized, message) }
func Forbidden(w http.ResponseWriter, message string)       { Error(w, http.StatusForbidden, message) }
func NotFound(w http.ResponseWriter, message string)        { Error(w, http.StatusNotFound, message) }
func TooManyRequests(w http.ResponseWriter, message string) { Error(w, http.StatusTooManyRequests, message) }

// InternalError writes a 500. Log the cause separately; message goes to the client.
func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}

// Fail maps err to a status through apperr and writes its public message.
// Only 5xx failures are logged, since 4xx answers are the caller's problem.
//
//	if err := h.svc.DeleteProduct(ctx, id); err != nil {
//	    jsonutil.Fail(w, h.logger, err)
//	    return
//	}
func Fail(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	Error(w, status, apperr.Message(err))
}

// Decode reads exactly one JSON value from the request body into v. Bodies
// over 1 MiB, empty bodies and trailing data are errors. Unknown fields are
// ignored.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}
