package otx

import (
	"context"

	"github.com/arloliu/otx-pulsar/internal/tracker"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InitTracing installs the process-wide tracer and namer. The Pulsar
// wrappers fall back to this tracer when no TracerProvider is passed.
func InitTracing(tracer trace.Tracer, namer SpanNamer) {
	var n tracker.Namer
	if namer != nil {
		n = namer
	}
	tracker.Set(tracer, n)
}

// Start begins an internal span named through the installed namer.
// Without InitTracing it returns ctx and its current span unchanged.
func Start(ctx context.Context, operation string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tracker.Start(ctx, operation, opts...)
}

// StartServer begins a server span, e.g. around an inbound request that
// publishes messages.
func StartServer(ctx context.Context, operation string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts = append([]trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindServer)}, opts...)
	return Start(ctx, operation, opts...)
}

// TraceID returns the hex trace ID in ctx, or "".
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return ""
}

// SpanID returns the hex span ID in ctx, or "".
func SpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasSpanID() {
		return sc.SpanID().String()
	}

	return ""
}

// RecordError records err on the current span and marks it failed.
// A nil err is ignored.
func RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSuccess marks the current span as ok.
func SetSuccess(ctx context.Context) {
	trace.SpanFromContext(ctx).SetStatus(codes.Ok, "")
}
