package monitor

import (
	"strings"
	"testing"
)

func TestRedact_ReplacesMessageAndToolIDs(t *testing.T) {
	body := []byte(`{"id":"msg_abc123","content":[{"type":"tool_use","id":"toolu_xyz789"}]}`)
	got := string(Redact(body))

	if strings.Contains(got, "msg_abc123") || strings.Contains(got, "toolu_xyz789") {
		t.Fatalf("expected dynamic ids to be redacted, got %s", got)
	}
	if !strings.Contains(got, `"msg_REDACTED"`) || !strings.Contains(got, `"toolu_REDACTED"`) {
		t.Fatalf("expected stable redaction placeholders, got %s", got)
	}
}

func TestRedact_IsIdempotent(t *testing.T) {
	body := []byte(`{"id":"msg_abc123"}`)
	once := Redact(body)
	twice := Redact(once)
	if string(once) != string(twice) {
		t.Fatalf("expected redaction to be stable across repeated calls: %s vs %s", once, twice)
	}
}
