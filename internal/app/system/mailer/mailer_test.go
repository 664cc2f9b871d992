package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.uber.org/zap"
)

type captureTransport struct {
	sent []Email
	err  error
}

func (c *captureTransport) deliver(_, _ string, email Email) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, email)
	return nil
}

func newCaptureMailer() (*Mailer, *captureTransport) {
	ct := &captureTransport{}
	return &Mailer{transport: ct, from: "shop@example.com", fromName: "Template Shop", log: zap.NewNop()}, ct
}

func TestNew_SelectsTransport(t *testing.T) {
	m := New(Config{Transport: TransportSendGrid, SendGridAPIKey: "SG.x"}, zap.NewNop())
	if _, ok := m.transport.(*sendgridTransport); !ok {
		t.Errorf("transport = %T, want *sendgridTransport", m.transport)
	}
	m = New(Config{Host: "localhost", Port: 25}, zap.NewNop())
	if _, ok := m.transport.(*smtpTransport); !ok {
		t.Errorf("transport = %T, want *smtpTransport", m.transport)
	}
}

func TestSendVerificationCode(t *testing.T) {
	m, ct := newCaptureMailer()
	if err := m.SendVerificationCode(context.Background(), "buyer@example.com", "482913", 10); err != nil {
		t.Fatalf("SendVerificationCode() error = %v", err)
	}
	if len(ct.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(ct.sent))
	}
	e := ct.sent[0]
	if e.To != "buyer@example.com" {
		t.Errorf("To = %q", e.To)
	}
	if !strings.Contains(e.TextBody, "482913") || !strings.Contains(e.HTMLBody, "482913") {
		t.Error("both bodies should contain the code")
	}
	if !strings.Contains(e.TextBody, "10 minutes") {
		t.Error("text body should state the expiry")
	}
}

func TestSendBundleFiles(t *testing.T) {
	m, ct := newCaptureMailer()
	files := []models.FileRef{
		{Name: "f1.psd", URL: "https://cdn.example.com/f1.psd"},
		{Name: "f2.ai", URL: "https://cdn.example.com/f2.ai"},
	}
	if err := m.SendBundleFiles(context.Background(), "buyer@example.com", "Wedding Pack", files); err != nil {
		t.Fatalf("SendBundleFiles() error = %v", err)
	}
	e := ct.sent[0]
	if e.Subject != "Your purchase: Wedding Pack" {
		t.Errorf("Subject = %q", e.Subject)
	}
	first := strings.Index(e.TextBody, "f1.psd")
	second := strings.Index(e.TextBody, "f2.ai")
	if first < 0 || second < 0 || first > second {
		t.Error("files should be listed in order")
	}
	if !strings.Contains(e.HTMLBody, `href="https://cdn.example.com/f2.ai"`) {
		t.Error("HTML body should link every file")
	}
}

func TestSend_TransportError(t *testing.T) {
	m, ct := newCaptureMailer()
	ct.err = errors.New("connection refused")
	err := m.SendProductFiles(context.Background(), "buyer@example.com", "Menu", nil)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error = %v, want wrapped transport error", err)
	}
}

func TestSend_CanceledContext(t *testing.T) {
	m, ct := newCaptureMailer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.SendVerificationCode(ctx, "buyer@example.com", "123456", 10); err == nil {
		t.Error("expected an error for a canceled context")
	}
	if len(ct.sent) != 0 {
		t.Error("nothing should be sent")
	}
}
