package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var (
	spans         = tracetest.NewSpanRecorder()
	installTracer sync.Once
)

// recordSpans routes the package tracer into spans. The global provider
// can only be delegated once per process.
func recordSpans() {
	installTracer.Do(func() {
		otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)))
	})
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func endedSpan(t *testing.T, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, s := range spans.Ended() {
		if s.Name() == name {
			return s
		}
	}
	t.Fatalf("no ended span named %q", name)
	return nil
}

func accessLog(t *testing.T, buf *bytes.Buffer, path string) map[string]any {
	t.Helper()
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var record map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		if record["msg"] == "http request" && record["path"] == path {
			return record
		}
	}
	t.Fatalf("no access log for %s in %s", path, buf.String())
	return nil
}

func newMiddlewareRouter() http.Handler {
	r := chi.NewRouter()
	useMiddleware(r)
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(r.Context(), w, "ok", nil)
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("boom"))
	})
	return r
}

func TestAccessLogCarriesRequestTrace(t *testing.T) {
	recordSpans()
	logs := captureLogs(t)

	w := httptest.NewRecorder()
	newMiddlewareRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusOK, w.Code)

	span := endedSpan(t, "GET /ok")
	record := accessLog(t, logs, "/ok")
	assert.Equal(t, span.SpanContext().TraceID().String(), record["traceId"])
	assert.Equal(t, span.SpanContext().SpanID().String(), record["spanId"])
	assert.EqualValues(t, http.StatusOK, record["status"])
}

func TestRecoveryMarksRequestSpan(t *testing.T) {
	recordSpans()
	logs := captureLogs(t)

	w := httptest.NewRecorder()
	newMiddlewareRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	span := endedSpan(t, "GET /boom")
	assert.Equal(t, codes.Error, span.Status().Code)

	var events []string
	for _, e := range span.Events() {
		events = append(events, e.Name)
	}
	assert.Contains(t, events, "exception")

	record := accessLog(t, logs, "/boom")
	assert.EqualValues(t, http.StatusInternalServerError, record["status"])
}
