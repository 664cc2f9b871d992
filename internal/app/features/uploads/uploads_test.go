package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/testutil"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	objects map[string][]byte
	types   map[string]string
	fail    bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(_ context.Context, path string, r io.Reader, opts *storage.PutOptions) error {
	if m.fail {
		return fmt.Errorf("disk full")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[path] = b
	if opts != nil {
		m.types[path] = opts.ContentType
	}
	return nil
}

func (m *memStore) URL(path string) string { return "https://cdn.test/" + path }

func multipartRequest(t *testing.T, kind, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if kind != "" {
		require.NoError(t, mw.WriteField("kind", kind))
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newRouter(t *testing.T, store Storage) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager("this-is-a-32-character-long-key!", "test-session", "", time.Hour, false, logger)
	require.NoError(t, err)
	h := NewHandler(store, nil, logger)
	h.now = func() time.Time { return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC) }
	return Routes(h, sm)
}

func TestUpload_Image(t *testing.T) {
	store := newMemStore()
	router := newRouter(t, store)

	req := testutil.WithUser(multipartRequest(t, "", "Hero.PNG", "image/png", []byte("png-bytes")), testutil.AdminUser())
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	var got uploadResult
	rec.DecodeJSON(t, &got)
	assert.True(t, strings.HasPrefix(got.Path, "images/2026/03/"), got.Path)
	assert.True(t, strings.HasSuffix(got.Path, ".png"), got.Path)
	assert.Equal(t, "https://cdn.test/"+got.Path, got.URL)
	assert.Equal(t, "Hero.PNG", got.Name)
	assert.Equal(t, []byte("png-bytes"), store.objects[got.Path])
	assert.Equal(t, "image/png", store.types[got.Path])
}

func TestUpload_DeliverableFile(t *testing.T) {
	store := newMemStore()
	router := newRouter(t, store)

	req := testutil.WithUser(multipartRequest(t, "file", "invite.zip", "application/zip", []byte("zip")), testutil.AdminUser())
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	var got uploadResult
	rec.DecodeJSON(t, &got)
	assert.True(t, strings.HasPrefix(got.Path, "files/2026/03/"), got.Path)
}

func TestUpload_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
	}{
		{"anonymous", func(t *testing.T) *http.Request {
			return multipartRequest(t, "", "a.png", "image/png", []byte("x"))
		}, http.StatusUnauthorized},
		{"no file", func(t *testing.T) *http.Request {
			return testutil.WithUser(multipartRequest(t, "image", "", "", nil), testutil.AdminUser())
		}, http.StatusBadRequest},
		{"unknown kind", func(t *testing.T) *http.Request {
			return testutil.WithUser(multipartRequest(t, "video", "a.mp4", "video/mp4", []byte("x")), testutil.AdminUser())
		}, http.StatusBadRequest},
		{"non-image as image", func(t *testing.T) *http.Request {
			return testutil.WithUser(multipartRequest(t, "image", "a.pdf", "application/pdf", []byte("x")), testutil.AdminUser())
		}, http.StatusBadRequest},
		{"not multipart", func(t *testing.T) *http.Request {
			return testutil.WithUser(testutil.NewJSONRequest(http.MethodPost, "/", map[string]string{"a": "b"}), testutil.AdminUser())
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			rec := testutil.NewRecorder()
			newRouter(t, store).ServeHTTP(rec, tt.req(t))
			rec.AssertStatus(t, tt.status)
			assert.Empty(t, store.objects)
		})
	}
}

func TestUpload_StorageFailure(t *testing.T) {
	store := newMemStore()
	store.fail = true

	rec := testutil.NewRecorder()
	newRouter(t, store).ServeHTTP(rec, testutil.WithUser(multipartRequest(t, "", "a.png", "image/png", []byte("x")), testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusInternalServerError)
}
