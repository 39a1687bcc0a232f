package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"severe", ErrorLevel},
		{"verbose", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.in))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "INFO", LogLevel(42).String())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(WarnLevel, &buf)

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.WithField("identifier", "Notch").Warn("lookup failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "lookup failed", entry["msg"])
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "Notch", entry["identifier"])
}

func TestFromContext(t *testing.T) {
	t.Run("falls back to the standard logger", func(t *testing.T) {
		entry := FromContext(context.Background())
		assert.Equal(t, logrus.StandardLogger(), entry.Logger)
		assert.Empty(t, entry.Data)
	})

	t.Run("carries request id", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(InfoLevel, &buf)

		ctx := WithLogger(context.Background(), log)
		ctx = WithRequestID(ctx, "req-1")

		entry := FromContext(ctx)
		assert.Equal(t, log, entry.Logger)
		assert.Equal(t, "req-1", entry.Data["request_id"])
		assert.Equal(t, "req-1", GetRequestID(ctx))
	})

	t.Run("carries trace ids of a recording span", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider()
		defer tp.Shutdown(context.Background())

		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		entry := FromContext(ctx)
		assert.Equal(t, span.SpanContext().TraceID().String(), entry.Data["trace_id"])
		assert.Equal(t, span.SpanContext().SpanID().String(), entry.Data["span_id"])
	})
}
