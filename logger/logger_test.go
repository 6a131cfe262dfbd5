package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"openai_api_key", "sk-123", "user_id", "u1"})
	assert.Equal(t, []interface{}{"openai_api_key", "[REDACTED]", "user_id", "u1"}, out)
}

func TestSanitizeKVsHashesEmail(t *testing.T) {
	out := sanitizeKVs([]interface{}{"email", "Alice@Example.com"})
	hashed, ok := out[1].(string)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(hashed, "sha256:"))
	assert.NotContains(t, hashed, "alice")

	// Case and whitespace do not change the hash.
	again := sanitizeKVs([]interface{}{"email", " alice@example.com "})
	assert.Equal(t, hashed, again[1])
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"stage", "inference", "dangling"})
	assert.Len(t, out, 3)
	assert.Equal(t, "dangling", out[2])
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := NewNop().With("component", "test")
	l.Info("hello", "n", 1)
	l.Warn("warn")
	l.Sync()
}
