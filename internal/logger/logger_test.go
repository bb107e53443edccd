package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVs(t *testing.T) {
	long := strings.Repeat("a", 500)
	out := sanitizeKVs([]interface{}{"jwt_secret", "s3cr3t", "passage", long, "attempt", 2, "dangling"})

	if out[1] != "[REDACTED]" {
		t.Errorf("expected secret redacted, got %v", out[1])
	}
	if s := out[3].(string); len(s) >= len(long) {
		t.Errorf("expected passage truncated, got %d bytes", len(s))
	}
	if out[5] != 2 {
		t.Errorf("expected attempt untouched, got %v", out[5])
	}
	if len(out) != 7 || out[6] != "dangling" {
		t.Errorf("expected dangling key kept, got %v", out)
	}
}

func TestNop(t *testing.T) {
	l := Nop().With("run_id", "x")
	l.Info("ignored", "k", "v")
	l.Sync()
}
