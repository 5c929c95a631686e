package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType represents the type of audit event
type EventType string

const (
	EventRegister               EventType = "register"
	EventLoginSuccess           EventType = "login_success"
	EventLoginFailed            EventType = "login_failed"
	EventLoginBlocked           EventType = "login_blocked"
	EventGoogleLogin            EventType = "google_login"
	EventLogout                 EventType = "logout"
	EventProfileLoaded          EventType = "profile_loaded"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordReset          EventType = "password_reset"
	EventBlockCreated           EventType = "block_created"
	EventRateLimitTriggered     EventType = "rate_limit_triggered"
	EventUnauthorizedAccess     EventType = "unauthorized_access"
	EventUploadRejected         EventType = "upload_rejected"
	EventDataExport             EventType = "data_export"
)

// AuditEvent is one auth or abuse-related event.
type AuditEvent struct {
	Timestamp    time.Time
	Event        EventType
	SubjectType  string // "email", "ip", "uid"
	SubjectValue string // masked or hashed before logging
	IP           string
	UserAgent    string
	RequestID    string
	Details      map[string]any
}

// AuditLogger writes audit events as structured zap entries.
type AuditLogger struct {
	zapLogger   *zap.Logger
	serviceName string
	environment string
}

// NewAuditLogger builds a production zap logger writing JSON to stdout.
func NewAuditLogger(serviceName, environment string) *AuditLogger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return NewAuditLoggerWithZap(logger, serviceName, environment)
}

func NewAuditLoggerWithZap(logger *zap.Logger, serviceName, environment string) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{zapLogger: logger, serviceName: serviceName, environment: environment}
}

// NopAuditLogger discards every event.
func NopAuditLogger() *AuditLogger {
	return NewAuditLoggerWithZap(zap.NewNop(), "", "")
}

func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	if al == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	severity := GetSeverity(event.Event)

	fields := []zap.Field{
		zap.String("service", al.serviceName),
		zap.String("env", al.environment),
		zap.String("event", string(event.Event)),
		zap.String("severity", string(severity)),
		zap.Time("occurred_at", event.Timestamp),
	}
	if event.SubjectType != "" {
		fields = append(fields,
			zap.String("subject_type", event.SubjectType),
			zap.String("subject_value", maskValue(event.SubjectType, event.SubjectValue)),
		)
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if len(event.Details) > 0 {
		fields = append(fields, zap.Any("details", event.Details))
	}

	al.zapLogger.Log(severity.level(), string(event.Event), fields...)
}

// LogLoginFailed logs a failed login attempt
func (al *AuditLogger) LogLoginFailed(ctx context.Context, email, ip, userAgent, reason string) {
	al.Log(ctx, AuditEvent{
		Event:        EventLoginFailed,
		SubjectType:  "email",
		SubjectValue: email,
		IP:           ip,
		UserAgent:    userAgent,
		Details:      map[string]any{"reason": reason},
	})
}

// LogLoginBlocked logs a login refused because of earlier failures
func (al *AuditLogger) LogLoginBlocked(ctx context.Context, email, ip, userAgent string) {
	al.Log(ctx, AuditEvent{
		Event:        EventLoginBlocked,
		SubjectType:  "email",
		SubjectValue: email,
		IP:           ip,
		UserAgent:    userAgent,
		Details:      map[string]any{"reason": "too_many_failed_attempts"},
	})
}

// LogBlockCreated logs when a block is created
func (al *AuditLogger) LogBlockCreated(ctx context.Context, subjectType, subjectValue, ip string, durationMinutes int) {
	al.Log(ctx, AuditEvent{
		Event:        EventBlockCreated,
		SubjectType:  subjectType,
		SubjectValue: subjectValue,
		IP:           ip,
		Details:      map[string]any{"duration_minutes": durationMinutes},
	})
}

// LogRateLimitTriggered logs when rate limiting is triggered
func (al *AuditLogger) LogRateLimitTriggered(ctx context.Context, ip, userAgent, requestID, endpoint string) {
	al.Log(ctx, AuditEvent{
		Event:        EventRateLimitTriggered,
		SubjectType:  "ip",
		SubjectValue: ip,
		IP:           ip,
		UserAgent:    userAgent,
		RequestID:    requestID,
		Details:      map[string]any{"endpoint": endpoint},
	})
}

// Sync flushes any buffered log entries
func (al *AuditLogger) Sync() error {
	return al.zapLogger.Sync()
}

// MaskEmail masks an email for logging (e.g., "j***@example.com")
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if len(email) < 3 || at < 0 {
		return "***"
	}
	if at <= 1 {
		return "***" + email[at:]
	}
	return email[:1] + "***" + email[at:]
}

// HashValue creates a short SHA256 digest of a value (for logging without PII)
func HashValue(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:8])
}

func maskValue(subjectType, value string) string {
	switch subjectType {
	case "email":
		return MaskEmail(value)
	case "ip":
		return value
	default:
		return HashValue(value)
	}
}
