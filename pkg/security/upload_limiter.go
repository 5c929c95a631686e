package security

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-panel-backend/pkg/redis"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// uploadWindow is one budget the limiter enforces.
type uploadWindow struct {
	scope string // "ip" or "user"
	limit int
	span  time.Duration
	retry int // seconds suggested to the client when exhausted
}

// UploadLimiter throttles image uploads per client IP per minute and per
// signed-in account per day. Redis keeps sliding windows shared between
// replicas; without a client each key gets a token bucket in memory.
type UploadLimiter struct {
	windows []uploadWindow
	client  func() *goredis.Client

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// slidingWindow trims entries older than the span, then admits the member
// if the remaining count is under the limit.
var slidingWindow = goredis.NewScript(`
local cutoff = tonumber(ARGV[3]) - tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', cutoff)
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// NewUploadLimiter falls back to 10 per minute and 50 per day for
// non-positive values.
func NewUploadLimiter(perMin, perDay int) *UploadLimiter {
	if perMin <= 0 {
		perMin = 10
	}
	if perDay <= 0 {
		perDay = 50
	}
	return &UploadLimiter{
		windows: []uploadWindow{
			{scope: "ip", limit: perMin, span: time.Minute, retry: 60},
			{scope: "user", limit: perDay, span: 24 * time.Hour, retry: 3600},
		},
		client:  redis.Client,
		buckets: make(map[string]*rate.Limiter),
	}
}

// AllowUpload reports whether the upload may proceed and, if not, how many
// seconds the client should wait. Redis errors deny the upload.
func (ul *UploadLimiter) AllowUpload(ctx context.Context, ip, accountID string) (bool, int, error) {
	client := ul.client()
	now := time.Now()

	for _, w := range ul.windows {
		subject := ip
		if w.scope == "user" {
			if accountID == "" {
				continue
			}
			subject = accountID
		}

		var allowed bool
		if client == nil {
			allowed = ul.allowLocal(w, subject)
		} else {
			key := fmt.Sprintf("upload:%s:%s", w.scope, subject)
			n, err := slidingWindow.Run(ctx, client, []string{key},
				w.limit, w.span.Milliseconds(), now.UnixMilli(), uuid.NewString()).Int()
			if err != nil {
				return false, w.retry, fmt.Errorf("upload window %s: %w", w.scope, err)
			}
			allowed = n == 1
		}
		if !allowed {
			return false, w.retry, nil
		}
	}
	return true, 0, nil
}

func (ul *UploadLimiter) allowLocal(w uploadWindow, subject string) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	key := w.scope + ":" + subject
	l, ok := ul.buckets[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(w.span/time.Duration(w.limit)), w.limit)
		ul.buckets[key] = l
	}
	return l.Allow()
}
