package util

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// BaseName returns the file name without directory or extension.
func BaseName(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var (
	secretPattern = regexp.MustCompile(`(?i)(api[_-]?key|authorization|x-amz-security-token|x-amz-signature|secret)([=: ]+)(bearer\s+)?[^\s&,"]+`)
	bearerPattern = regexp.MustCompile(`(?i)\bbearer\s+[^\s&,"\[]+`)
)

// SanitizeError flattens an error for storage or display: single line,
// credentials redacted, bounded length.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = secretPattern.ReplaceAllString(msg, "$1$2[redacted]")
	msg = bearerPattern.ReplaceAllString(msg, "Bearer [redacted]")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
