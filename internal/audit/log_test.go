package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"vidaplus.org/internal/auth"
	"vidaplus.org/internal/obs"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	obs.Logger().SetOutput(&buf)
	t.Cleanup(func() { obs.Logger().SetOutput(os.Stdout) })
	return &buf
}

func TestLogEvent(t *testing.T) {
	buf := captureLog(t)

	ctx := WithRequestID(context.Background(), "rid-42")
	ctx = auth.ContextWithIdentity(ctx, auth.Identity{ID: "u1", Role: auth.RoleDoctor})

	if err := LogEvent(ctx, "authz.denied", map[string]any{"gate": "role"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("entry is not JSON: %v (raw %q)", err, buf.String())
	}
	if entry["type"] != "audit" || entry["event"] != "authz.denied" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["request_id"] != "rid-42" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["actor_id"] != "u1" || entry["actor_role"] != "doctor" {
		t.Errorf("actor = %v/%v", entry["actor_id"], entry["actor_role"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["gate"] != "role" {
		t.Errorf("fields = %v", entry["fields"])
	}
}

func TestLogEventAnonymous(t *testing.T) {
	buf := captureLog(t)

	if err := LogEvent(context.Background(), "auth.login.denied", nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("entry is not JSON: %v", err)
	}
	if _, present := entry["actor_id"]; present {
		t.Error("anonymous event must not carry an actor")
	}
	if _, present := entry["request_id"]; present {
		t.Error("event without request context must not carry a request_id")
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for blank event name")
	}
}
