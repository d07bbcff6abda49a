package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestStartSpan_NoProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test", TenantAttr("t1"), ActionAttr("send_email"))
	assert.NotNil(t, span)
	assert.Equal(t, span, trace.SpanFromContext(ctx))
	assert.Empty(t, TraceID(ctx))

	assert.NotPanics(t, func() { EndSpan(span, errors.New("boom")) })
}

func TestTraceID(t *testing.T) {
	tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid})

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", TraceID(ctx))
}
