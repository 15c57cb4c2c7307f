package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRandomString(t *testing.T) {
	a := RandomString(12)
	b := RandomString(12)
	assert.Len(t, a, 12)
	assert.NotEqual(t, a, b)
}

func TestDateStamp(t *testing.T) {
	ts := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-14", DateStamp(ts))
}

func TestPadIndex(t *testing.T) {
	assert.Equal(t, "01", PadIndex(1))
	assert.Equal(t, "10", PadIndex(10))
	assert.Equal(t, "100", PadIndex(100))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "visa-tips", Slug("Visa Tips"))
	assert.Equal(t, "a-b-c", Slug("  a\tb  c "))
	assert.Equal(t, "general", Slug(""))
	assert.Equal(t, "general", Slug("   "))
}
