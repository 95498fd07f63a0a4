// internal/middleware/rate_limit.go
package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/javajoker/bulkwear-backend/internal/i18n"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-IP token bucket kept in process memory.
type RateLimiter struct {
	visitors map[string]*visitor
	mtx      sync.Mutex
	rate     rate.Limit
	burst    int
	idle     time.Duration
}

func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    b,
		idle:     3 * time.Minute,
	}
}

// Run drops idle visitors every minute until stop is closed.
func (rl *RateLimiter) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.cleanupVisitors(time.Now())
		}
	}
}

func (rl *RateLimiter) cleanupVisitors(now time.Time) {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getVisitor(c.ClientIP()).Allow() {
			utils.TooManyRequestsResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyRateLimitExceeded))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimiters groups the limiters the router installs.
type RateLimiters struct {
	General *RateLimiter
	Auth    *RateLimiter
	Upload  *RateLimiter
}

func DefaultRateLimiters() *RateLimiters {
	return &RateLimiters{
		General: NewRateLimiter(rate.Every(100*time.Millisecond), 20), // 10 requests per second
		Auth:    NewRateLimiter(rate.Every(6*time.Second), 10),        // 10 auth requests per minute
		Upload:  NewRateLimiter(rate.Every(6*time.Second), 10),        // 10 uploads per minute
	}
}

func (r *RateLimiters) Run(stop <-chan struct{}) {
	go r.General.Run(stop)
	go r.Auth.Run(stop)
	go r.Upload.Run(stop)
}
