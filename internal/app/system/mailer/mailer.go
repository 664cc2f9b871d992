// internal/app/system/mailer/mailer.go
package mailer

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/smtp"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Transport names accepted in Config.Transport.
const (
	TransportSMTP     = "smtp"
	TransportSendGrid = "sendgrid"
)

// Mailer sends emails through SMTP or the SendGrid API.
type Mailer struct {
	transport transport
	from      string
	fromName  string
	log       *zap.Logger
}

// Config holds the configuration for creating a Mailer.
type Config struct {
	Transport      string // smtp (default) or sendgrid
	Host           string
	Port           int
	User           string
	Pass           string
	SendGridAPIKey string
	From           string
	FromName       string
}

// transport delivers one fully addressed email.
type transport interface {
	deliver(from, fromName string, email Email) error
}

// New creates a new Mailer with the given configuration.
func New(cfg Config, log *zap.Logger) *Mailer {
	var t transport
	switch cfg.Transport {
	case TransportSendGrid:
		t = &sendgridTransport{client: sendgrid.NewSendClient(cfg.SendGridAPIKey)}
	default:
		t = &smtpTransport{host: cfg.Host, port: cfg.Port, user: cfg.User, pass: cfg.Pass}
	}
	return &Mailer{
		transport: t,
		from:      cfg.From,
		fromName:  cfg.FromName,
		log:       log,
	}
}

// FromName returns the configured sender display name.
// Templates use it as the store name.
func (m *Mailer) FromName() string {
	return m.fromName
}

// Email represents an email to be sent.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Send sends an email. If HTMLBody is provided, the message carries both
// plain text and HTML versions.
func (m *Mailer) Send(email Email) error {
	if err := m.transport.deliver(m.from, m.fromName, email); err != nil {
		m.log.Error("failed to send email",
			zap.String("to", email.To),
			zap.String("subject", email.Subject),
			zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.log.Info("email sent",
		zap.String("to", email.To),
		zap.String("subject", email.Subject))
	return nil
}

type smtpTransport struct {
	host string
	port int
	user string
	pass string
}

func (t *smtpTransport) deliver(fromAddr, fromName string, email Email) error {
	from := fromAddr
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, fromAddr)
	}

	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")

	if email.HTMLBody != "" {
		boundary := randomBoundary()
		msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary))

		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		msg.WriteString(email.TextBody)
		msg.WriteString("\r\n")

		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		msg.WriteString(email.HTMLBody)
		msg.WriteString("\r\n")

		msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	} else {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		msg.WriteString(email.TextBody)
	}

	addr := fmt.Sprintf("%s:%d", t.host, t.port)

	var auth smtp.Auth
	if t.user != "" && t.pass != "" {
		auth = smtp.PlainAuth("", t.user, t.pass, t.host)
	}
	return smtp.SendMail(addr, auth, fromAddr, []string{email.To}, msg.Bytes())
}

type sendgridTransport struct {
	client *sendgrid.Client
}

func (t *sendgridTransport) deliver(fromAddr, fromName string, email Email) error {
	from := mail.NewEmail(fromName, fromAddr)
	to := mail.NewEmail("", email.To)
	message := mail.NewSingleEmail(from, email.Subject, to, email.TextBody, email.HTMLBody)

	resp, err := t.client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// randomBoundary generates a random boundary string for multipart emails.
func randomBoundary() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand.Read failed: " + err.Error())
	}
	return "----=_Part_" + hex.EncodeToString(b)
}
