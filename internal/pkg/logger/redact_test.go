package logger

import "testing"

func TestRedactEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
	}
	for _, c := range cases {
		if got := RedactEmail(c.in); got != c.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRedactPIIValueKeys(t *testing.T) {
	// Field names used throughout send tracking and prospect import must
	// trigger full-value redaction, not just embedded-email scrubbing.
	for _, key := range []string{"recipient_email", "prospect_email", "email"} {
		if got := redactPIIValue(key, "jane@acme.io"); got != "ja***@acme.io" {
			t.Errorf("redactPIIValue(%q) = %q, want masked", key, got)
		}
	}
	if got := redactPIIValue("note", "reply from jane@acme.io today"); got != "reply from ja***@acme.io today" {
		t.Errorf("embedded redaction = %q", got)
	}
}
