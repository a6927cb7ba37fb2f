package sessionauth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// decodeLogLines parses every JSON line written to buf
func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Failed to parse log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestSecurityEventLevels tests the level chosen for each outcome
func TestSecurityEventLevels(t *testing.T) {
	tests := []struct {
		name          string
		event         SecurityEvent
		expectedLevel string
		expectedMsg   string
	}{
		{
			name:          "success",
			event:         SecurityEvent{Action: actionLogin, Outcome: outcomeSuccess},
			expectedLevel: "INFO",
			expectedMsg:   "login succeeded",
		},
		{
			name:          "credential failure",
			event:         SecurityEvent{Action: actionAuthenticate, Outcome: outcomeFailure, FailureReason: string(ErrRevoked)},
			expectedLevel: "WARN",
			expectedMsg:   "authentication failed",
		},
		{
			name:          "infrastructure failure",
			event:         SecurityEvent{Action: actionLogout, Outcome: outcomeFailure, FailureReason: string(ErrInfrastructure)},
			expectedLevel: "ERROR",
			expectedMsg:   "logout failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logSecurityEvent(newJSONLogger(&buf), tt.event)

			entries := decodeLogLines(t, &buf)
			if len(entries) != 1 {
				t.Fatalf("expected 1 log entry, got %d", len(entries))
			}
			if entries[0]["level"] != tt.expectedLevel {
				t.Errorf("expected level %s, got %v", tt.expectedLevel, entries[0]["level"])
			}
			if entries[0]["msg"] != tt.expectedMsg {
				t.Errorf("expected msg %q, got %v", tt.expectedMsg, entries[0]["msg"])
			}
		})
	}
}

// TestSecurityEventRedactsToken tests that full tokens never reach the log
func TestSecurityEventRedactsToken(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, WithLogger(newJSONLogger(&buf)))

	session := env.mustLogin(t, "alice", "wonderland")
	if strings.Contains(buf.String(), session.Token) {
		t.Fatal("log contains the full token")
	}

	entries := decodeLogLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	event, ok := entries[0]["auth_event"].(map[string]any)
	if !ok {
		t.Fatalf("expected auth_event group, got %v", entries[0])
	}
	if event["token"] != session.Token[:8]+"..." {
		t.Errorf("expected redacted token, got %v", event["token"])
	}
	if event["username"] != "alice" || event["outcome"] != outcomeSuccess {
		t.Errorf("unexpected event %v", event)
	}
}

// TestSecurityEventRequestID tests correlation through the context
func TestSecurityEventRequestID(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, WithLogger(newJSONLogger(&buf)))

	ctx := WithRequestID(context.Background(), "req-7")
	if _, err := env.svc.Login(ctx, "alice", "wrong"); err == nil {
		t.Fatal("expected login failure")
	}

	entries := decodeLogLines(t, &buf)
	event := entries[0]["auth_event"].(map[string]any)
	if event["request_id"] != "req-7" {
		t.Errorf("expected request_id req-7, got %v", event["request_id"])
	}
	if event["failure_reason"] != string(ErrUnauthorized) {
		t.Errorf("expected failure_reason %s, got %v", ErrUnauthorized, event["failure_reason"])
	}
}

// TestRedactToken tests redaction edge cases
func TestRedactToken(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"", ""},
		{"short", "***"},
		{"12345678", "***"},
		{"eyJhbGciOiJIUzI1NiJ9.payload.sig", "eyJhbGci..."},
	}
	for _, tt := range tests {
		if got := redactToken(tt.in); got != tt.out {
			t.Errorf("redactToken(%q) = %q, want %q", tt.in, got, tt.out)
		}
	}
}

// TestNilLogger tests that a nil logger disables logging
func TestNilLogger(t *testing.T) {
	logSecurityEvent(nil, SecurityEvent{Action: actionLogin, Timestamp: time.Now()})
}
