package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{
		"email", "jane@example.com",
		"telegram_token", "123:abc",
		"url", "https://example.com/jobs/1",
		"dangling",
	})
	want := []interface{}{
		"email", "j***@example.com",
		"telegram_token", "[REDACTED]",
		"url", "https://example.com/jobs/1",
		"dangling",
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kv[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMaskEmail_Malformed(t *testing.T) {
	for _, s := range []string{"", "nobody", "@example.com"} {
		if got := maskEmail(s); got != "[REDACTED]" {
			t.Errorf("maskEmail(%q) = %q, want [REDACTED]", s, got)
		}
	}
}
