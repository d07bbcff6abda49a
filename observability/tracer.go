// Package observability wraps OpenTelemetry tracing. Spans are no-ops until
// the embedding process installs a TracerProvider with otel.SetTracerProvider.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/youssefsiam38/flowent-gateway"

func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func TenantAttr(tenantID string) attribute.KeyValue {
	return attribute.String("gateway.tenant_id", tenantID)
}

func ActionAttr(name string) attribute.KeyValue {
	return attribute.String("gateway.action", name)
}

// TraceID returns the hex trace id carried by ctx, or "" if there is none.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
