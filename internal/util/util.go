package util

import (
	"fmt"
	"os"
)

// DefaultLogMaxLen is the default maximum length for truncated log output.
const DefaultLogMaxLen = 1024

// TruncateLog truncates long strings for verbose logging.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateBytes is a convenience wrapper for TruncateLog that accepts
// []byte and uses DefaultLogMaxLen.
func TruncateBytes(b []byte) string {
	return TruncateLog(string(b), DefaultLogMaxLen)
}

// MaskSecret hides credential material for logs and API responses,
// keeping only a short suffix for recognition. Short values are masked
// entirely.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) < 20 {
		return "***"
	}
	return "..." + s[len(s)-6:]
}

// IsVerbose reports whether verbose request logging is enabled via
// GATE_VERBOSE.
func IsVerbose() bool {
	v := os.Getenv("GATE_VERBOSE")
	return v == "1" || v == "true"
}
