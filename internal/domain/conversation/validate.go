package conversation

import (
	"strings"
	"unicode/utf8"

	"hostelcare/internal/config"
	"hostelcare/internal/pkg/apperr"
)

// NormalizeText trims the remark and enforces its length bounds.
func NormalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.Validation("text", "remark must not be empty")
	}
	if utf8.RuneCountInString(text) > config.MaxRemarkLength {
		return "", apperr.Validation("text", "remark exceeds 2000 characters")
	}
	return text, nil
}

// Preview shortens text for notification payloads.
func Preview(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	r := []rune(text)
	return string(r[:max]) + "…"
}
