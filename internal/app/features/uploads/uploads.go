// Package uploads stores admin-uploaded images and deliverable files.
package uploads

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/stratastore/internal/app/store/audit"
	"github.com/dalemusser/stratastore/internal/app/system/auditlog"
	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUploadSize = 32 << 20 // 32MB

// Storage is the part of storage.Store the handler needs.
type Storage interface {
	Put(ctx context.Context, path string, r io.Reader, opts *storage.PutOptions) error
	URL(path string) string
}

// Handler serves /api/admin/uploads.
type Handler struct {
	store  Storage
	audit  *auditlog.Logger
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates an uploads Handler.
func NewHandler(store Storage, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{store: store, audit: audit, logger: logger, now: time.Now}
}

// Routes mounts POST / for admins. The multipart body carries "file" and an
// optional "kind" of "image" (default) or "file".
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAdmin)
	r.Post("/", h.upload)
	return r
}

type uploadResult struct {
	Path        string `json:"path"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// folderFor maps the requested kind onto a storage prefix.
func folderFor(kind string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "image":
		return "images", true
	case "file":
		return "files", true
	}
	return "", false
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		jsonutil.BadRequest(w, "upload too large or malformed (max 32MB)")
		return
	}

	folder, ok := folderFor(r.FormValue("kind"))
	if !ok {
		jsonutil.BadRequest(w, `kind must be "image" or "file"`)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		jsonutil.BadRequest(w, "file is required")
		return
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if folder == "images" && !strings.HasPrefix(contentType, "image/") {
		jsonutil.BadRequest(w, "image uploads must have an image content type")
		return
	}

	// images/YYYY/MM/<uuid><ext>
	now := h.now().UTC()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	path := fmt.Sprintf("%s/%04d/%02d/%s%s", folder, now.Year(), int(now.Month()), uuid.NewString(), ext)

	if err := h.store.Put(r.Context(), path, f, &storage.PutOptions{ContentType: contentType}); err != nil {
		h.logger.Error("upload failed", zap.String("path", path), zap.Error(err))
		jsonutil.InternalError(w, "failed to store upload")
		return
	}

	h.audit.AdminChange(r, audit.EventContentCreated, "uploads", path)
	h.logger.Info("file uploaded", zap.String("path", path), zap.Int64("size", header.Size))

	jsonutil.Created(w, uploadResult{
		Path:        path,
		URL:         h.store.URL(path),
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: contentType,
	})
}
