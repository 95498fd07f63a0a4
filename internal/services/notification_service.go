// internal/services/notification_service.go
package services

import (
	"github.com/javajoker/bulkwear-backend/internal/notification"
)

// Mailer hands a message to background delivery. Dispatch never blocks the
// caller on the transport.
type Mailer interface {
	Dispatch(msg notification.Message)
}

// MailerFunc adapts a function to Mailer.
type MailerFunc func(msg notification.Message)

func (f MailerFunc) Dispatch(msg notification.Message) {
	f(msg)
}
