// Package revalidate exposes the cache-refresh webhook. Admins and callers
// holding the shared secret may ask for a tag to be refreshed.
package revalidate

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"github.com/dalemusser/stratastore/internal/app/system/auditlog"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/stratastore/internal/app/system/revalidate"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Invalidator drops locally cached section trees. *sectiontree.Manager satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Forwarder passes a tag on to the rendering frontend. *revalidate.Client satisfies it.
type Forwarder interface {
	Enabled() bool
	Secret() string
	Revalidate(ctx context.Context, tag string) error
}

// Handler serves /api/revalidate.
type Handler struct {
	sections Invalidator
	frontend Forwarder
	audit    *auditlog.Logger
	logger   *zap.Logger
}

// NewHandler creates a revalidate Handler.
func NewHandler(sections Invalidator, frontend Forwarder, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{sections: sections, frontend: frontend, audit: audit, logger: logger}
}

// Routes mounts POST /{tag}. The router must run after LoadSessionUser.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.With(auth.AdminOrSecret(revalidate.SecretHeader, h.frontend.Secret(), h.logger)).
		Post("/{tag}", h.revalidate)
	return r
}

func (h *Handler) revalidate(w http.ResponseWriter, r *http.Request) {
	const op = "revalidate.Tag"
	tag := chi.URLParam(r, "tag")

	if !revalidate.IsValidTag(tag) {
		h.audit.Revalidated(r.Context(), r, tag, false, "unknown tag")
		jsonutil.Fail(w, h.logger, apperr.Invalid(op, "unknown revalidation tag %q", tag))
		return
	}

	if tag == revalidate.TagSections {
		if err := h.sections.Invalidate(r.Context()); err != nil {
			// The cache expires on its own; the frontend still gets the tag.
			h.logger.Warn("section cache invalidation failed", zap.Error(err))
		}
	}

	if err := h.frontend.Revalidate(r.Context(), tag); err != nil {
		h.audit.Revalidated(r.Context(), r, tag, false, err.Error())
		jsonutil.Fail(w, h.logger, apperr.Internal(op, err))
		return
	}

	h.audit.Revalidated(r.Context(), r, tag, true, "")
	jsonutil.OK(w, map[string]any{
		"revalidated": true,
		"tag":         tag,
		"forwarded":   h.frontend.Enabled(),
	})
}
