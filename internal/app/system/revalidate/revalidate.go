// Package revalidate tells the rendering frontend to drop cached pages.
package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Tags the frontend understands.
const (
	TagSections   = "sections"
	TagProducts   = "products"
	TagHeroSlides = "hero-slides"
)

// SecretHeader carries the shared revalidation secret.
const SecretHeader = "X-Revalidate-Secret"

// DefaultTimeout bounds one revalidation call.
const DefaultTimeout = 5 * time.Second

// IsValidTag reports whether tag is one the frontend understands.
func IsValidTag(tag string) bool {
	switch tag {
	case TagSections, TagProducts, TagHeroSlides:
		return true
	}
	return false
}

// Client posts {"tag": ...} to the frontend's revalidation URL.
// A Client with an empty URL does nothing.
type Client struct {
	url    string
	secret string
	http   *http.Client
	log    *zap.Logger
}

// New creates a Client. The HTTP client propagates trace context.
func New(url, secret string, log *zap.Logger) *Client {
	return &Client{
		url:    url,
		secret: secret,
		http: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
}

// Enabled reports whether a frontend URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Secret returns the shared secret callers must present.
func (c *Client) Secret() string {
	if c == nil {
		return ""
	}
	return c.secret
}

// Revalidate asks the frontend to refresh pages tagged with tag.
func (c *Client) Revalidate(ctx context.Context, tag string) error {
	if !c.Enabled() {
		return nil
	}

	body, err := json.Marshal(map[string]string{"tag": tag})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build revalidate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set(SecretHeader, c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("revalidate %s: %w", tag, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("revalidate %s: frontend returned %d", tag, resp.StatusCode)
	}
	c.log.Debug("frontend revalidated", zap.String("tag", tag))
	return nil
}
