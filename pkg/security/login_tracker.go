package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-panel-backend/pkg/redis"

	goredis "github.com/redis/go-redis/v9"
)

// LoginTrackerConfig holds configuration for login tracking
type LoginTrackerConfig struct {
	MaxAttempts   int           // Maximum failed attempts before block (default: 5)
	AttemptWindow time.Duration // Time window for tracking attempts (default: 15min)
	BlockDuration time.Duration // How long to block after max attempts (default: 15min)
	UseIPTracking bool          // Also track by IP address (default: true)
}

// DefaultLoginTrackerConfig returns sensible defaults
func DefaultLoginTrackerConfig() LoginTrackerConfig {
	return LoginTrackerConfig{
		MaxAttempts:   5,
		AttemptWindow: 15 * time.Minute,
		BlockDuration: 15 * time.Minute,
		UseIPTracking: true,
	}
}

// LoginTracker tracks failed login attempts and enforces blocks. It uses
// Redis when connected and an in-process table otherwise.
type LoginTracker struct {
	config LoginTrackerConfig
	audit  *AuditLogger
	client func() *goredis.Client
	local  *memoryCounters
}

func NewLoginTracker(config LoginTrackerConfig, audit *AuditLogger) *LoginTracker {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.AttemptWindow <= 0 {
		config.AttemptWindow = 15 * time.Minute
	}
	if config.BlockDuration <= 0 {
		config.BlockDuration = 15 * time.Minute
	}
	return &LoginTracker{
		config: config,
		audit:  audit,
		client: redis.Client,
		local:  newMemoryCounters(time.Now),
	}
}

// Redis key patterns
const (
	failLoginUserPrefix    = "fail:login:user:"
	failLoginIPPrefix      = "fail:login:ip:"
	blockedLoginUserPrefix = "blocked:login:user:"
	blockedLoginIPPrefix   = "blocked:login:ip:"
)

// Lua script for atomic increment with TTL on first set
// KEYS[1] = counter key
// ARGV[1] = TTL in seconds
// Returns: current count after increment
const incrWithTTLScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`

// IsBlocked checks if the given email or IP is currently blocked
func (lt *LoginTracker) IsBlocked(ctx context.Context, email, ip string) (bool, error) {
	email = strings.ToLower(email)
	keys := []string{blockedLoginUserPrefix + email}
	if lt.config.UseIPTracking && ip != "" {
		keys = append(keys, blockedLoginIPPrefix+ip)
	}

	client := lt.client()
	if client == nil {
		for _, k := range keys {
			if lt.local.exists(k) {
				return true, nil
			}
		}
		return false, nil
	}

	exists, err := client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check login block: %w", err)
	}
	return exists > 0, nil
}

// RecordFailedAttempt records a failed login attempt.
// Returns (blocked, currentAttempts, error)
func (lt *LoginTracker) RecordFailedAttempt(ctx context.Context, email, ip, userAgent, reason string) (bool, int, error) {
	email = strings.ToLower(email)
	lt.audit.LogLoginFailed(ctx, email, ip, userAgent, reason)

	userCount, err := lt.increment(ctx, failLoginUserPrefix+email)
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment user counter: %w", err)
	}
	if lt.config.UseIPTracking && ip != "" {
		_, _ = lt.increment(ctx, failLoginIPPrefix+ip) // Best effort
	}

	if userCount < lt.config.MaxAttempts {
		return false, userCount, nil
	}
	if err := lt.createBlock(ctx, email, ip); err != nil {
		return true, userCount, fmt.Errorf("failed to create block: %w", err)
	}
	return true, userCount, nil
}

func (lt *LoginTracker) increment(ctx context.Context, key string) (int, error) {
	client := lt.client()
	if client == nil {
		return lt.local.incr(key, lt.config.AttemptWindow), nil
	}

	result, err := client.Eval(ctx, incrWithTTLScript, []string{key}, int(lt.config.AttemptWindow.Seconds())).Result()
	if err != nil {
		return 0, err
	}
	count, ok := result.(int64)
	if !ok {
		return 0, errors.New("unexpected result type from Lua script")
	}
	return int(count), nil
}

func (lt *LoginTracker) createBlock(ctx context.Context, email, ip string) error {
	blockTTL := lt.config.BlockDuration
	keys := []string{blockedLoginUserPrefix + email}
	if lt.config.UseIPTracking && ip != "" {
		keys = append(keys, blockedLoginIPPrefix+ip)
	}

	client := lt.client()
	for _, k := range keys {
		if client == nil {
			lt.local.set(k, blockTTL)
			continue
		}
		if err := client.Set(ctx, k, "1", blockTTL).Err(); err != nil {
			return err
		}
	}

	lt.audit.LogBlockCreated(ctx, "email", email, ip, int(blockTTL.Minutes()))
	return nil
}

// ClearAttempts clears failed login attempts on successful login
func (lt *LoginTracker) ClearAttempts(ctx context.Context, email, ip string) error {
	email = strings.ToLower(email)
	keys := []string{failLoginUserPrefix + email}
	if lt.config.UseIPTracking && ip != "" {
		keys = append(keys, failLoginIPPrefix+ip)
	}

	client := lt.client()
	if client == nil {
		for _, k := range keys {
			lt.local.del(k)
		}
		return nil
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear login attempts: %w", err)
	}
	return nil
}

// memoryCounters is the in-process stand-in for the Redis keys above.
type memoryCounters struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	count     int
	expiresAt time.Time
}

func newMemoryCounters(now func() time.Time) *memoryCounters {
	return &memoryCounters{now: now, entries: make(map[string]memoryEntry)}
}

func (m *memoryCounters) live(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if ok && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, ok
}

func (m *memoryCounters) incr(key string, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		e.expiresAt = m.now().Add(ttl)
	}
	e.count++
	m.entries[key] = e
	return e.count
}

func (m *memoryCounters) set(key string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{count: 1, expiresAt: m.now().Add(ttl)}
}

func (m *memoryCounters) exists(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live(key)
	return ok
}

func (m *memoryCounters) del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}
