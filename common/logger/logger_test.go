package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func newJSONLogger(buf *bytes.Buffer, level Level) *Logger {
	return New(&Config{Level: level, Output: buf, JSONFormat: true})
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, WARN)

	l.Info("ignored")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}

	l.Warn("kept %d", 1)
	if !strings.Contains(buf.String(), "kept 1") {
		t.Errorf("expected formatted warning, got %q", buf.String())
	}
}

func TestLoggerFieldsAreCopied(t *testing.T) {
	var buf bytes.Buffer
	parent := newJSONLogger(&buf, DEBUG)
	child := parent.With("guest_id", 7)

	parent.Info("parent")
	if strings.Contains(buf.String(), "guest_id") {
		t.Errorf("parent logger must not inherit child fields: %q", buf.String())
	}

	buf.Reset()
	child.Info("child")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["guest_id"] != float64(7) {
		t.Errorf("guest_id = %v, want 7", entry["guest_id"])
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, DEBUG)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, 3)
	l.WithContext(ctx).Info("scoped")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-1"`, `"user_id":3`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %s", out, want)
		}
	}
}

func TestLogRequestLevel(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, `"level":"INFO"`},
		{404, `"level":"WARN"`},
		{500, `"level":"ERROR"`},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		newJSONLogger(&buf, DEBUG).LogRequest(RequestLog{Method: "GET", Path: "/api/events", Status: tt.status})
		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("status %d: output %q missing %s", tt.status, buf.String(), tt.want)
		}
	}
}
