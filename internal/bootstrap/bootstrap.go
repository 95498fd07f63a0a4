// Package bootstrap builds the infrastructure clients shared by the
// server, sweeper and mailer binaries from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/cache"
	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/notification"
	"github.com/javajoker/bulkwear-backend/internal/storage"
)

const cacheKeyPrefix = "bulkwear:"

func SetupLogging(cfg *config.Config) {
	logrus.SetOutput(os.Stdout)
	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// OpenCache returns the configured cache and a function releasing it.
func OpenCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	if cfg.Cache.Driver == "memory" {
		return cache.NewMemoryCache(cfg.Cache.MemoryCapacity), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr(), err)
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing redis client")
		}
	}
	return cache.NewRedisCache(client, cacheKeyPrefix), closeFn, nil
}

func OpenStorage(cfg *config.Config) (storage.FileStorage, error) {
	if cfg.Storage.Driver == "s3" {
		return storage.NewS3Storage(cfg.AWS)
	}
	return storage.NewLocalStorage(cfg.Storage.LocalRoot, cfg.Storage.PublicURL)
}

// OpenMailer returns the dispatcher services send email through. With a
// queue URL configured, messages are published for cmd/mailer to deliver;
// otherwise they go straight to SMTP.
func OpenMailer(cfg *config.Config) (*notification.Dispatcher, func(), error) {
	if cfg.Queue.URL == "" {
		return notification.NewDispatcher(notification.NewSMTPSender(cfg.Email), 0), func() {}, nil
	}

	queue, err := notification.DialQueue(cfg.Queue.URL, cfg.Queue.EmailQueue)
	if err != nil {
		return nil, nil, err
	}
	return notification.NewDispatcher(queue, 10*time.Second), queue.Close, nil
}
