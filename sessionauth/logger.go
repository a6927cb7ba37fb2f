package sessionauth

import (
	"context"
	"log/slog"
	"time"
)

const (
	actionLogin        = "login"
	actionLogout       = "logout"
	actionAuthenticate = "authentication"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// SecurityEvent represents a structured security log entry
type SecurityEvent struct {
	Action        string        // "login", "logout" or "authentication"
	Outcome       string        // "success" or "failure"
	Timestamp     time.Time     // Event timestamp
	RequestID     string        // Correlation ID
	Username      string        // Subject, when known
	FailureReason string        // Error code (on failure)
	TokenPreview  string        // Redacted token preview
	Latency       time.Duration // Handling latency
}

// LogValue implements slog.LogValuer for structured logging with redaction
func (e SecurityEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("action", e.Action),
		slog.String("outcome", e.Outcome),
		slog.Time("timestamp", e.Timestamp),
		slog.String("request_id", e.RequestID),
		slog.String("username", e.Username),
		slog.String("failure_reason", e.FailureReason),
		slog.String("token", redactToken(e.TokenPreview)),
		slog.Duration("latency", e.Latency),
	)
}

// redactToken redacts sensitive token data
func redactToken(token string) string {
	if len(token) == 0 {
		return ""
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}

// logSecurityEvent emits a security event via the configured logger.
// Infrastructure failures are logged at error level so they are not
// mistaken for ordinary credential rejections.
func logSecurityEvent(logger *slog.Logger, event SecurityEvent) {
	if logger == nil {
		return
	}

	switch {
	case event.Outcome == outcomeSuccess:
		logger.Info(event.Action+" succeeded", "auth_event", event)
	case event.FailureReason == string(ErrInfrastructure):
		logger.Error(event.Action+" failed", "auth_event", event)
	default:
		logger.Warn(event.Action+" failed", "auth_event", event)
	}
}

// newEvent starts an event for action, correlated with ctx's request ID
func newEvent(ctx context.Context, action, username string, start time.Time) SecurityEvent {
	requestID, _ := RequestIDFromContext(ctx)
	return SecurityEvent{
		Action:    action,
		Outcome:   outcomeSuccess,
		Timestamp: time.Now(),
		RequestID: requestID,
		Username:  username,
		Latency:   time.Since(start),
	}
}

// withFailure marks the event as failed with err's code
func (e SecurityEvent) withFailure(err error) SecurityEvent {
	e.Outcome = outcomeFailure
	e.FailureReason = string(CodeOf(err))
	return e
}
