package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{"api_key", "sk-123", "query", "refund policy", "dangling"})
	assert.Equal(t, []interface{}{"api_key", "[REDACTED]", "query", "refund policy", "dangling"}, out)
}

func TestLogger_WithRedactsCredentials(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("service", "test").Info("calling provider", "Authorization", "Bearer abc", "model", "m")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "test", fields["service"])
		assert.Equal(t, "[REDACTED]", fields["Authorization"])
		assert.Equal(t, "m", fields["model"])
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("ignored", "k", "v")
	l.Sync()
}
