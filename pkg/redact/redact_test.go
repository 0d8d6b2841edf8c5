package redact

import (
	"strings"
	"testing"
)

func TestTextRedactsWhenEnabled(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)

	got := Text("mail me at jane.doe@example.com or call +1 555-0102 9876")
	if strings.Contains(got, "example.com") {
		t.Fatalf("email leaked: %q", got)
	}
	if !strings.Contains(got, "[REDACTED_EMAIL]") || !strings.Contains(got, "[REDACTED_PHONE]") {
		t.Fatalf("placeholders missing: %q", got)
	}
}

func TestTextPassthroughWhenDisabled(t *testing.T) {
	SetEnabled(false)

	in := "mail me at jane.doe@example.com"
	if got := Text(in); got != in {
		t.Fatalf("Text = %q, want unchanged", got)
	}
}

func TestClipTruncatesLongTranscripts(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 300)
	got := Clip("  " + long + "  ")
	if len(got) != 123 || !strings.HasSuffix(got, "...") {
		t.Fatalf("Clip length = %d, suffix %q", len(got), got[len(got)-3:])
	}
	if got := Clip("short"); got != "short" {
		t.Fatalf("Clip(short) = %q", got)
	}
}
