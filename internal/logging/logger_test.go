package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewWritesJSONWithServiceFields(t *testing.T) {
	var buf bytes.Buffer
	l := New("parking-test", "production", &buf, sdklog.NewLoggerProvider())

	l.Info("vehicle admitted", "ticket", 42)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "vehicle admitted", record["msg"])
	assert.Equal(t, "parking-test", record["service"])
	assert.Equal(t, "production", record["environment"])
	assert.EqualValues(t, 42, record["ticket"])
}

func TestDebugOnlyInDevelopment(t *testing.T) {
	var prod, dev bytes.Buffer
	New("svc", "production", &prod, sdklog.NewLoggerProvider()).Debug("hidden")
	New("svc", "development", &dev, sdklog.NewLoggerProvider()).Debug("shown")

	assert.Empty(t, prod.String())
	assert.Contains(t, dev.String(), "shown")
}

func TestWithTraceAddsSpanIdentifiers(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	l := New("svc", "production", &buf, sdklog.NewLoggerProvider())
	withTrace(ctx, l).InfoContext(ctx, "traced")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, span.SpanContext().TraceID().String(), record["traceId"])
	assert.Equal(t, span.SpanContext().SpanID().String(), record["spanId"])
}

func TestWithTraceWithoutSpan(t *testing.T) {
	l := New("svc", "production", &bytes.Buffer{}, sdklog.NewLoggerProvider())
	assert.Same(t, l, withTrace(context.Background(), l))
}
