// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"html/template"
	"strconv"
	"strings"

	"github.com/dalemusser/stratastore/internal/domain/models"
)

// VerificationCodeEmailData contains the data for a purchase verification email.
type VerificationCodeEmailData struct {
	AppName   string
	Code      string
	ExpiryMin int
}

// VerificationCodeEmail generates both plain text and HTML versions of a verification code email.
func VerificationCodeEmail(data VerificationCodeEmailData) (textBody, htmlBody string) {
	textBody = "Your " + data.AppName + " verification code is: " + data.Code + "\n\n" +
		"Enter it on the checkout page to continue with your purchase.\n" +
		"This code will expire in " + strconv.Itoa(data.ExpiryMin) + " minutes.\n\n" +
		"If you did not request this, you can safely ignore this email."

	var buf bytes.Buffer
	codeHTMLTmpl.Execute(&buf, data)
	return textBody, buf.String()
}

// FilesEmailData contains the data for a delivery email.
type FilesEmailData struct {
	AppName  string
	ItemName string // product title or bundle name
	IsBundle bool
	Files    []models.FileRef
}

// FilesEmail generates both plain text and HTML versions of a delivery email.
func FilesEmail(data FilesEmailData) (textBody, htmlBody string) {
	var b strings.Builder
	b.WriteString("Thank you for purchasing " + data.ItemName + " from " + data.AppName + ".\n\n")
	b.WriteString("Your download links:\n\n")
	for _, f := range data.Files {
		b.WriteString("- " + f.Name + ": " + f.URL + "\n")
	}
	b.WriteString("\nKeep this email; the links are your receipt for these files.")
	textBody = b.String()

	var buf bytes.Buffer
	filesHTMLTmpl.Execute(&buf, data)
	return textBody, buf.String()
}

const layoutHead = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f4f4f5;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f4f4f5;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
          <tr>
            <td style="padding: 32px 32px 24px 32px; text-align: center; border-bottom: 1px solid #e4e4e7;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #18181b;">{{.AppName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">`

const layoutFoot = `
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

var codeHTMLTmpl = template.Must(template.New("verification_code").Parse(layoutHead + `
              <h2 style="margin: 0 0 16px 0; font-size: 20px; font-weight: 600; color: #18181b;">Confirm your email</h2>
              <p style="margin: 0 0 24px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                Enter this code on the checkout page to continue with your purchase.
              </p>
              <p style="margin: 0 0 24px 0; font-size: 32px; font-weight: 700; letter-spacing: 6px; text-align: center; color: #18181b;">{{.Code}}</p>
              <p style="margin: 0; font-size: 14px; line-height: 1.6; color: #71717a;">
                This code will expire in <strong>{{.ExpiryMin}} minutes</strong>. If you did not request it, you can ignore this email.
              </p>` + layoutFoot))

var filesHTMLTmpl = template.Must(template.New("files").Parse(layoutHead + `
              <h2 style="margin: 0 0 16px 0; font-size: 20px; font-weight: 600; color: #18181b;">Your {{if .IsBundle}}bundle{{else}}files{{end}} {{.ItemName}}</h2>
              <p style="margin: 0 0 24px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                Thank you for your purchase. Download your files below.
              </p>
              <ul style="margin: 0 0 24px 0; padding-left: 20px; font-size: 15px; line-height: 1.8;">
                {{range .Files}}<li><a href="{{.URL}}" style="color: #4f46e5;">{{.Name}}</a></li>{{end}}
              </ul>
              <p style="margin: 0; font-size: 14px; line-height: 1.6; color: #71717a;">
                Keep this email; the links are your receipt for these files.
              </p>` + layoutFoot))
