package api

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeRequestID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc-DEF_123", "abc-DEF_123"},
		{"id with spaces", "idwithspaces"},
		{"inject\r\nlevel=error", "injectlevelerror"},
		{strings.Repeat("a", 100), strings.Repeat("a", 64)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeRequestID(tt.in), tt.in)
	}
}

func TestLogWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core).Sugar()

	LogWithRequestID(WithRequestID(context.Background(), "req-1"), logger).Info("hello")
	LogWithRequestID(context.Background(), logger).Info("anonymous")

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "unknown", entries[1].ContextMap()["request_id"])
}

func TestContextKeys(t *testing.T) {
	ctx := WithUsername(context.Background(), "analyst")
	username, ok := GetUsername(ctx)
	assert.True(t, ok)
	assert.Equal(t, "analyst", username)

	_, ok = GetRequestID(ctx)
	assert.False(t, ok)
	_, ok = GetTraceStart(ctx)
	assert.False(t, ok)
}
