package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type traceLogEntry struct {
	Message string `json:"msg"`
	TraceID string `json:"trace_id"`
	SpanID  string `json:"span_id"`
}

func TestLoggerWithTraceContext(t *testing.T) {
	t.Run("no span leaves the logger untouched", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		LoggerWithTraceContext(context.Background(), logger).Info("plain")

		var entry traceLogEntry
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("Failed to unmarshal log entry: %v", err)
		}
		if entry.TraceID != "" {
			t.Errorf("Expected no trace_id without a span, got %s", entry.TraceID)
		}
	})

	t.Run("recording span adds trace and span ids", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		tp := sdktrace.NewTracerProvider()
		defer tp.Shutdown(context.Background())
		ctx, span := tp.Tracer("test").Start(context.Background(), "traced-request")
		defer span.End()

		LoggerWithTraceContext(ctx, logger).Info("traced")

		var entry traceLogEntry
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("Failed to unmarshal log entry: %v", err)
		}
		if want := span.SpanContext().TraceID().String(); entry.TraceID != want {
			t.Errorf("Expected trace_id %s, got %s", want, entry.TraceID)
		}
		if want := span.SpanContext().SpanID().String(); entry.SpanID != want {
			t.Errorf("Expected span_id %s, got %s", want, entry.SpanID)
		}
	})
}
