// Package ratelimit implements fixed-window counters on top of the shared
// cache so that limits hold across every API instance.
package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/javajoker/bulkwear-backend/internal/cache"
)

// Window counts events per subject in a fixed window that starts with the
// first event. The counter expires with the window.
type Window struct {
	cache  cache.Cache
	prefix string
	window time.Duration
	limit  int64
}

func NewWindow(c cache.Cache, prefix string, limit int, window time.Duration) *Window {
	return &Window{
		cache:  c,
		prefix: prefix,
		window: window,
		limit:  int64(limit),
	}
}

func (w *Window) key(subject string) string {
	return w.prefix + strings.ToLower(strings.TrimSpace(subject))
}

// Hit records one event and reports whether it is still within the limit.
// The event counts even when it is rejected.
func (w *Window) Hit(ctx context.Context, subject string) (bool, error) {
	n, err := w.cache.Increment(ctx, w.key(subject), w.window)
	if err != nil {
		return false, err
	}
	return n <= w.limit, nil
}

// Exceeded reports whether the limit has already been reached without
// recording an event.
func (w *Window) Exceeded(ctx context.Context, subject string) (bool, error) {
	raw, ok, err := w.cache.Get(ctx, w.key(subject))
	if err != nil || !ok {
		return false, err
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return false, nil
	}
	return n >= w.limit, nil
}

// Record counts an event without checking the limit.
func (w *Window) Record(ctx context.Context, subject string) error {
	_, err := w.cache.Increment(ctx, w.key(subject), w.window)
	return err
}

func (w *Window) Reset(ctx context.Context, subject string) error {
	return w.cache.Delete(ctx, w.key(subject))
}
