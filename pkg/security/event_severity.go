package security

import "go.uber.org/zap/zapcore"

// Severity represents the severity level of an audit event.
// It is derived from EventType, never supplied by callers.
type Severity string

const (
	SeverityINFO   Severity = "INFO"
	SeverityMEDIUM Severity = "MEDIUM"
	SeverityWARN   Severity = "WARN"
	SeverityHIGH   Severity = "HIGH"
)

var eventSeverity = map[EventType]Severity{
	EventRegister:      SeverityINFO,
	EventLoginSuccess:  SeverityINFO,
	EventGoogleLogin:   SeverityINFO,
	EventLogout:        SeverityINFO,
	EventProfileLoaded: SeverityINFO,

	EventPasswordResetRequested: SeverityMEDIUM,
	EventPasswordReset:          SeverityMEDIUM,
	EventDataExport:             SeverityMEDIUM,

	EventLoginFailed:        SeverityWARN,
	EventRateLimitTriggered: SeverityWARN,
	EventUploadRejected:     SeverityWARN,

	EventLoginBlocked:       SeverityHIGH,
	EventBlockCreated:       SeverityHIGH,
	EventUnauthorizedAccess: SeverityHIGH,
}

// GetSeverity returns the severity for an event type.
// Unmapped types default to MEDIUM.
func GetSeverity(eventType EventType) Severity {
	if severity, ok := eventSeverity[eventType]; ok {
		return severity
	}
	return SeverityMEDIUM
}

func (s Severity) level() zapcore.Level {
	switch s {
	case SeverityINFO, SeverityMEDIUM:
		return zapcore.InfoLevel
	case SeverityWARN:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
