package util

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameLength bounds sanitized names in bytes.
const MaxFileNameLength = 200

// ErrInvalidFileName is returned when nothing usable remains of a name.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName keeps the last path segment of name, drops control characters and bounds
// its length. Names that reduce to nothing or to a dot path are rejected.
func SanitizeFileName(name string) (string, error) {
	s := strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if s == "" || strings.Trim(s, ".") == "" {
		return "", ErrInvalidFileName
	}
	for len(s) > MaxFileNameLength {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s, nil
}
