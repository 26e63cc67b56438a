package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestNewZapLogger(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{
			name:   "default config",
			config: Config{Level: InfoLevel, Format: JSONFormat},
		},
		{
			name:   "debug level json format",
			config: Config{Level: DebugLevel, Format: JSONFormat},
		},
		{
			name:   "console format",
			config: Config{Level: InfoLevel, Format: ConsoleFormat},
		},
		{
			name:   "error level",
			config: Config{Level: ErrorLevel, Format: JSONFormat},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewZapLogger(tt.config)
			assert.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestLoggerWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: DebugLevel, Format: JSONFormat, Output: &buf})
	require.NoError(t, err)

	log.Info("Query executed",
		String("project", "my-project"),
		Int("rows", 3),
		Duration("duration_ms", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)
	require.NoError(t, log.Sync())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Query executed", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "my-project", entry["project"])
	assert.EqualValues(t, 3, entry["rows"])
	assert.EqualValues(t, 1500, entry["duration_ms"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: WarnLevel, Format: JSONFormat, Output: &buf})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestWithContextAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: InfoLevel, Format: JSONFormat, Output: &buf})
	require.NoError(t, err)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	log.WithContext(ctx).Info("traced")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestWithContextWithoutSpan(t *testing.T) {
	log := Nop()
	assert.Equal(t, log, log.WithContext(context.Background()))
}

func TestLoggerMethods(t *testing.T) {
	log := Nop()
	require.NotNil(t, log)

	assert.NotPanics(t, func() {
		log.Debug("test message", String("key", "value"))
		log.Info("test message", String("key", "value"))
		log.Warn("test message", String("key", "value"))
		log.Error("test message", String("key", "value"))
	})
	assert.NotNil(t, log.With(String("field", "value")))
	assert.NoError(t, log.Sync())
}

func TestFieldConstructors(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, Field{Key: "key", Value: "value"}, String("key", "value"))
	assert.Equal(t, Field{Key: "count", Value: 42}, Int("count", 42))
	assert.Equal(t, Field{Key: "big", Value: int64(9223372036854775807)}, Int64("big", 9223372036854775807))
	assert.Equal(t, Field{Key: "enabled", Value: true}, Bool("enabled", true))
	assert.Equal(t, Field{Key: "elapsed_ms", Value: int64(1234)}, Duration("elapsed_ms", 1234*time.Millisecond))
	assert.Equal(t, Field{Key: "expires_at", Value: "2024-01-15T10:00:00Z"}, Time("expires_at", ts))
}

func TestParseLevelAndFormat(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, ConsoleFormat, ParseFormat("console"))
	assert.Equal(t, JSONFormat, ParseFormat("xml"))
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, InfoLevel, config.Level)
	assert.Equal(t, JSONFormat, config.Format)
}

func TestMustNew(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.NotNil(t, MustNew(DefaultConfig()))
	})
	assert.NotNil(t, NewDefault())
}
