package revalidate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRevalidate_PostsTagWithSecret(t *testing.T) {
	var gotTag, gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		gotTag = body["tag"]
		gotSecret = r.Header.Get(SecretHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "s3cret", zap.NewNop())
	require.NoError(t, c.Revalidate(context.Background(), TagSections))
	assert.Equal(t, TagSections, gotTag)
	assert.Equal(t, "s3cret", gotSecret)
}

func TestRevalidate_FrontendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "wrong", zap.NewNop())
	assert.Error(t, c.Revalidate(context.Background(), TagProducts))
}

func TestRevalidate_DisabledWithoutURL(t *testing.T) {
	c := New("", "", zap.NewNop())
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Revalidate(context.Background(), TagHeroSlides))
}

func TestIsValidTag(t *testing.T) {
	assert.True(t, IsValidTag("hero-slides"))
	assert.False(t, IsValidTag("pages"))
}
