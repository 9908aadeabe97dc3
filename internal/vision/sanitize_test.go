package vision

import (
	"strings"
	"testing"
)

func TestSanitizeText_MasksEmail(t *testing.T) {
	out := sanitizeText("contact alice.smith+work@example.co.uk for access")
	if strings.Contains(out, "alice.smith") {
		t.Errorf("expected email to be masked, got %q", out)
	}
	if !strings.Contains(out, "[redacted-email]") {
		t.Errorf("expected redaction marker, got %q", out)
	}
}

func TestSanitizeText_MasksCardNumber(t *testing.T) {
	out := sanitizeText("card on file: 4111 1111 1111 1111 expires soon")
	if strings.Contains(out, "4111") {
		t.Errorf("expected card number to be masked, got %q", out)
	}
	if !strings.Contains(out, "[redacted-card]") {
		t.Errorf("expected redaction marker, got %q", out)
	}
}

func TestSanitizeText_LeavesShortDigitRunsAlone(t *testing.T) {
	out := sanitizeText("build 2024 release 42")
	if strings.Contains(out, "redacted") {
		t.Errorf("expected short digit runs to be left alone, got %q", out)
	}
}

func TestSanitizeText_LeavesBenignTextAlone(t *testing.T) {
	in := "editing main.go in project"
	out := sanitizeText(in)
	if out != in {
		t.Errorf("expected unchanged text, got %q", out)
	}
}
