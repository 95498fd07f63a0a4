package repository

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AdvisoryLocker serialises work across processes with PostgreSQL session
// advisory locks. Lock and unlock run on the same pinned connection.
type AdvisoryLocker struct {
	db *gorm.DB
}

func NewAdvisoryLocker(db *gorm.DB) *AdvisoryLocker {
	return &AdvisoryLocker{db: db}
}

func lockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}

func (l *AdvisoryLocker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error) {
	key := lockKey(name)
	acquired := false

	err := l.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Raw("SELECT pg_try_advisory_lock(?)", key).Scan(&acquired).Error; err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", name, err)
		}
		if !acquired {
			return nil
		}
		defer func() {
			var released bool
			if err := conn.WithContext(context.Background()).Raw("SELECT pg_advisory_unlock(?)", key).Scan(&released).Error; err != nil || !released {
				logrus.WithError(err).WithField("lock", name).Warn("Failed to release advisory lock")
			}
		}()
		return fn(ctx)
	})
	return acquired, err
}
