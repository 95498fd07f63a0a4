package notification

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/config"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers messages synchronously. With no SMTP host configured
// it only logs, which keeps local development free of a mail server.
type SMTPSender struct {
	cfg      config.EmailConfig
	sendMail sendMailFunc
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := renderBody(msg)
	if err != nil {
		return err
	}

	if s.cfg.SMTPHost == "" {
		logrus.WithFields(logrus.Fields{
			"to":       msg.To,
			"subject":  msg.Subject,
			"template": msg.Template,
		}).Info("Email not configured, skipping delivery")
		return nil
	}

	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	if err := s.sendMail(addr, auth, s.cfg.FromEmail, []string{msg.To}, s.compose(msg, body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *SMTPSender) compose(msg Message, body string) []byte {
	from := s.cfg.FromEmail
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.cfg.FromName), s.cfg.FromEmail)
	}
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		from, msg.To, mime.QEncoding.Encode("utf-8", msg.Subject), body,
	))
}
