// cmd/mailer/main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/bootstrap"
	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/notification"
)

// The mailer drains the email queue the server publishes to and delivers
// each message over SMTP.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	bootstrap.SetupLogging(cfg)

	if cfg.Queue.URL == "" {
		logrus.Fatal("RABBITMQ_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue, err := notification.DialQueue(cfg.Queue.URL, cfg.Queue.EmailQueue)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to email queue")
	}
	defer queue.Close()

	logrus.WithField("queue", cfg.Queue.EmailQueue).Info("Mailer consuming")
	if err := queue.Consume(ctx, notification.NewSMTPSender(cfg.Email)); err != nil {
		logrus.WithError(err).Error("Mailer stopped")
		return
	}
	logrus.Info("Mailer exited")
}
