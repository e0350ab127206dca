package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/geocoder89/favfilms/internal/actorctx"
	"github.com/geocoder89/favfilms/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	buf.Reset()
	return rec
}

func TestLogger_AddsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "prod")

	log.InfoContext(context.Background(), "plain")
	rec := decodeLine(t, &buf)
	assert.Equal(t, ServiceName, rec["service"])
	assert.NotContains(t, rec, "trace_id")
	assert.NotContains(t, rec, "user_id")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = actorctx.WithSubject(ctx, auth.Subject{ID: "u-1"})

	log.InfoContext(ctx, "scoped")
	rec = decodeLine(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", rec["span_id"])
	assert.Equal(t, "u-1", rec["user_id"])
}

func TestLogger_DebugOnlyInDev(t *testing.T) {
	var buf bytes.Buffer

	NewLoggerTo(&buf, "prod").Debug("hidden")
	assert.Zero(t, buf.Len())

	NewLoggerTo(&buf, "dev").Debug("shown")
	assert.NotZero(t, buf.Len())
}
