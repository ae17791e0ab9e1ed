package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{"user_id", "u1", "password", "hunter2", "Email", "a@b.c", "dangling"})
	assert.Equal(t, []interface{}{"user_id", "u1", "password", "[REDACTED]", "Email", "[REDACTED]", "dangling"}, got)
}

func TestNopDoesNotPanic(t *testing.T) {
	l := Nop().With("service", "test")
	l.Info("hello", "k", 1)
	l.Error("boom", "token", "abc")
	l.Sync()
}
