package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

func RandomString(n int) string {
	bytes := make([]byte, n)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)[:n]
}

// DateStamp formats t the way exported artifact names encode the date.
func DateStamp(t time.Time) string {
	return t.Format("2006-01-02")
}

// PadIndex renders a 1-based slide index as a two-digit string.
func PadIndex(i int) string {
	return fmt.Sprintf("%02d", i)
}

// Slug lowercases s and replaces whitespace so it is safe inside a filename.
func Slug(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "general"
	}
	return strings.Join(strings.Fields(s), "-")
}
