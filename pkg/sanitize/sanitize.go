package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Plain email addresses (case-insensitive).
var reEmail = regexp.MustCompile(`(?i)[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}`)

// Common phone shapes: +xx..., (xxx) xxx-xxxx, 08xx...
// Only digits, spaces, dashes, dots, parentheses and plus are allowed.
// A candidate is redacted only when it holds at least minPhoneDigits digits,
// so dates and amounts in prose survive.
var rePhone = regexp.MustCompile(`\+?\(?\d[\d\s\-.()]{7,}\d`)

const minPhoneDigits = 9

func RedactPII(s string) string {
	if s == "" {
		return s
	}
	s = reEmail.ReplaceAllString(s, "[redacted email]")
	s = rePhone.ReplaceAllStringFunc(s, func(m string) string {
		if countDigits(m) < minPhoneDigits {
			return m
		}
		return "[redacted phone]"
	})
	return s
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// Summary cuts s to at most max bytes on a word boundary for list previews.
func Summary(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	i := max
	for i > 0 && s[i] != ' ' {
		i--
	}
	if i <= 0 {
		i = max
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return strings.TrimRight(s[:i], " ") + "…"
}
