package mailer

import (
	"context"

	"github.com/dalemusser/stratastore/internal/domain/models"
)

// SendVerificationCode emails a purchase verification code.
func (m *Mailer) SendVerificationCode(ctx context.Context, email, code string, expiryMin int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text, html := VerificationCodeEmail(VerificationCodeEmailData{
		AppName:   m.fromName,
		Code:      code,
		ExpiryMin: expiryMin,
	})
	return m.Send(Email{
		To:       email,
		Subject:  "Your " + m.fromName + " verification code",
		TextBody: text,
		HTMLBody: html,
	})
}

// SendProductFiles emails the download links of a purchased product.
func (m *Mailer) SendProductFiles(ctx context.Context, email, title string, files []models.FileRef) error {
	return m.sendFiles(ctx, email, title, false, files)
}

// SendBundleFiles emails the download links of every product in a bundle.
func (m *Mailer) SendBundleFiles(ctx context.Context, email, bundleName string, files []models.FileRef) error {
	return m.sendFiles(ctx, email, bundleName, true, files)
}

func (m *Mailer) sendFiles(ctx context.Context, email, name string, bundle bool, files []models.FileRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text, html := FilesEmail(FilesEmailData{
		AppName:  m.fromName,
		ItemName: name,
		IsBundle: bundle,
		Files:    files,
	})
	return m.Send(Email{
		To:       email,
		Subject:  "Your purchase: " + name,
		TextBody: text,
		HTMLBody: html,
	})
}
