// Package notification renders and delivers transactional emails.
package notification

import (
	"context"
	"fmt"
)

const (
	TemplatePasswordResetCode = "password_reset_code"
	TemplateContactUs         = "contact_us"
)

// Message is a rendered-on-delivery email. Data is passed to the named
// template and must survive a JSON round trip for queued delivery.
type Message struct {
	To       string                 `json:"to"`
	Subject  string                 `json:"subject"`
	Template string                 `json:"template"`
	Data     map[string]interface{} `json:"data"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func PasswordResetCodeMessage(email, code string, expiresInMinutes int) Message {
	return Message{
		To:       email,
		Subject:  "Password Reset Code",
		Template: TemplatePasswordResetCode,
		Data: map[string]interface{}{
			"Code":      code,
			"ExpiresIn": fmt.Sprintf("%d minutes", expiresInMinutes),
		},
	}
}

type ContactDetails struct {
	Name             string
	Email            string
	Phone            string
	BusinessName     string
	BusinessCategory string
	Address          string
	Subject          string
	Message          string
	CreatedAt        string
}

func ContactUsMessage(adminEmail string, d ContactDetails) Message {
	return Message{
		To:       adminEmail,
		Subject:  "New Contact Form Submission - " + d.Subject,
		Template: TemplateContactUs,
		Data: map[string]interface{}{
			"Name":             d.Name,
			"Email":            d.Email,
			"Phone":            d.Phone,
			"BusinessName":     d.BusinessName,
			"BusinessCategory": d.BusinessCategory,
			"Address":          d.Address,
			"Subject":          d.Subject,
			"Message":          d.Message,
			"CreatedAt":        d.CreatedAt,
		},
	}
}
