package vision

import (
	"os"
	"regexp"
	"strings"
)

// emailPattern mirrors the teacher's own emailRegex (internal/extract/deep.go).
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// cardNumberPattern matches long digit runs consistent with payment card
// numbers: 13-19 digits, optionally grouped by spaces or hyphens.
var cardNumberPattern = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)

// sanitizeText masks email addresses and card-number-like digit runs in s.
// Applied to both window titles and OCR text before persistence (§4.4
// step 6).
func sanitizeText(s string) string {
	s = emailPattern.ReplaceAllString(s, "[redacted-email]")
	s = cardNumberPattern.ReplaceAllStringFunc(s, func(m string) string {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, m)
		if len(digits) < 13 {
			return m
		}
		return "[redacted-card]"
	})
	s = maskHomeDirSegments(s)
	return s
}

// maskHomeDirSegments replaces the current user's home directory prefix in
// any file-path-looking substring with "~", so paths like
// "/home/alice/projects/secret" become "~/projects/secret".
func maskHomeDirSegments(s string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" || home == "/" {
		return s
	}
	return strings.ReplaceAll(s, home, "~")
}
