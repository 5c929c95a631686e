package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/logger"
	"go-panel-backend/pkg/redis"
	"go-panel-backend/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

const msgRateLimited = "Demasiadas solicitudes. Intenta nuevamente en unos minutos."

// RateLimitConfig describes one fixed-window budget.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	// KeyFunc picks the bucket; client IP when nil.
	KeyFunc   func(*gin.Context) string
	KeyPrefix string
	// FailClosed answers 503 instead of counting in memory when Redis errors.
	FailClosed bool
	Audit      *security.AuditLogger
}

// DefaultRateLimitConfig is the global per-IP budget. It degrades to local
// counting when Redis misbehaves.
func DefaultRateLimitConfig(limit int, window time.Duration, audit *security.AuditLogger) RateLimitConfig {
	if limit <= 0 {
		limit = 300
	}
	return RateLimitConfig{Limit: limit, Window: window, KeyPrefix: "rl:ip:", Audit: audit}
}

// AuthRateLimitConfig guards sign-in, registration and password reset.
func AuthRateLimitConfig(limit int, window time.Duration, audit *security.AuditLogger) RateLimitConfig {
	if limit <= 0 {
		limit = 10
	}
	return RateLimitConfig{Limit: limit, Window: window, KeyPrefix: "rl:auth:", FailClosed: true, Audit: audit}
}

// window is the state of one bucket after a hit.
type window struct {
	count   int
	resetAt time.Time
}

// fixedWindow increments the counter and sets the expiry on the first hit,
// atomically on the Redis side.
var fixedWindow = goredis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('TTL', KEYS[1])}
`)

func hitRedis(ctx context.Context, client *goredis.Client, key string, span time.Duration) (window, error) {
	res, err := fixedWindow.Run(ctx, client, []string{key}, int(span.Seconds())).Int64Slice()
	if err != nil {
		return window{}, err
	}
	if len(res) != 2 {
		return window{}, errors.New("rate limit: malformed script reply")
	}
	ttl := time.Duration(res[1]) * time.Second
	if ttl < 0 {
		ttl = span
	}
	return window{count: int(res[0]), resetAt: time.Now().Add(ttl)}, nil
}

// localWindows counts per process. Expired buckets are swept at most once
// per span.
type localWindows struct {
	mu        sync.Mutex
	buckets   map[string]window
	lastSweep time.Time
}

func (l *localWindows) hit(key string, span time.Duration, now time.Time) window {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.buckets == nil {
		l.buckets = make(map[string]window)
	}
	if now.Sub(l.lastSweep) > span {
		for k, w := range l.buckets {
			if now.After(w.resetAt) {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	w, ok := l.buckets[key]
	if !ok || now.After(w.resetAt) {
		w = window{resetAt: now.Add(span)}
	}
	w.count++
	l.buckets[key] = w
	return w
}

// RateLimitMiddleware counts requests in Redis when a client is configured
// and in process memory otherwise.
func RateLimitMiddleware(cfg RateLimitConfig) gin.HandlerFunc {
	keyOf := cfg.KeyFunc
	if keyOf == nil {
		keyOf = func(c *gin.Context) string { return c.ClientIP() }
	}
	local := &localWindows{}

	return func(c *gin.Context) {
		key := cfg.KeyPrefix + keyOf(c)
		now := time.Now()

		var w window
		if client := redis.Client(); client != nil {
			var err error
			w, err = hitRedis(c.Request.Context(), client, key, cfg.Window)
			if err != nil {
				logger.Log.Warn("rate limit store unavailable", "key", cfg.KeyPrefix, "fail_closed", cfg.FailClosed, "error", err)
				if cfg.FailClosed {
					auditLimiterFailure(c, cfg.Audit, err)
					_ = c.Error(apperror.New(http.StatusServiceUnavailable, apperror.MsgUnexpected, err))
					c.Abort()
					return
				}
				w = local.hit(key, cfg.Window, now)
			}
		} else {
			w = local.hit(key, cfg.Window, now)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(cfg.Limit-w.count, 0)))
		c.Header("X-RateLimit-Reset", w.resetAt.UTC().Format(time.RFC3339))

		if w.count > cfg.Limit {
			c.Header("Retry-After", strconv.Itoa(max(int(w.resetAt.Sub(now).Seconds()), 1)))
			if cfg.Audit != nil {
				cfg.Audit.LogRateLimitTriggered(c.Request.Context(), c.ClientIP(), c.Request.UserAgent(), c.GetString("RequestID"), c.FullPath())
			}
			_ = c.Error(apperror.TooManyRequests(msgRateLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}

func auditLimiterFailure(c *gin.Context, audit *security.AuditLogger, err error) {
	if audit == nil {
		return
	}
	audit.Log(c.Request.Context(), security.AuditEvent{
		Event:       security.EventRateLimitTriggered,
		SubjectType: "ip",
		IP:          c.ClientIP(),
		RequestID:   c.GetString("RequestID"),
		Details:     map[string]any{"error_type": "store_unavailable", "error": err.Error()},
	})
}
