package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameRunes = 128

// SanitizeFileName reduces a client supplied upload name to a log-safe label.
// Path separators become underscores, control characters are dropped and
// traversal patterns are rejected.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return "", errors.New("invalid file name")
	}
	if r := []rune(s); len(r) > maxFileNameRunes {
		s = string(r[:maxFileNameRunes])
	}
	return s, nil
}
