package notification

import (
	"bytes"
	"fmt"
	"html/template"
)

var templates = template.Must(template.New("emails").Parse(`
{{define "password_reset_code"}}<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif; color: #333;">
  <p>You are receiving this email because we received a password reset request for your account.</p>
  <p>Your password reset code is:</p>
  <div style="text-align: center; margin: 20px 0;">
    <span style="display: inline-block; font-size: 28px; letter-spacing: 6px; font-weight: bold; padding: 12px 24px; background: #f0f6fc; border-radius: 8px;">{{.Code}}</span>
  </div>
  <p>This code will expire in <strong>{{.ExpiresIn}}</strong>.</p>
  <p>If you did not request a password reset, no further action is required.</p>
</body>
</html>{{end}}

{{define "contact_us"}}<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif; color: #0D1B2A;">
  <h1>New Contact Form Submission</h1>
  <p><strong>Name:</strong> {{.Name}}</p>
  <p><strong>Email:</strong> {{.Email}}</p>
  {{if .Phone}}<p><strong>Phone:</strong> {{.Phone}}</p>{{end}}
  {{if .BusinessName}}<p><strong>Business Name:</strong> {{.BusinessName}}</p>{{end}}
  {{if .BusinessCategory}}<p><strong>Business Category:</strong> {{.BusinessCategory}}</p>{{end}}
  {{if .Address}}<p><strong>Address:</strong> {{.Address}}</p>{{end}}
  <p><strong>Subject:</strong> {{.Subject}}</p>
  <div style="white-space: pre-wrap; background: #f5f8fc; padding: 15px; border-radius: 8px;">{{.Message}}</div>
  <p style="font-size: 12px; color: #666;">Received {{.CreatedAt}}</p>
</body>
</html>{{end}}
`))

func renderBody(msg Message) (string, error) {
	if templates.Lookup(msg.Template) == nil {
		return "", fmt.Errorf("unknown email template %q", msg.Template)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, msg.Template, msg.Data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}
