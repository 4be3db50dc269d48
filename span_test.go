package otx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupSpanTest(t *testing.T, namer SpanNamer) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	InitTracing(tp.Tracer("otx-test"), namer)
	t.Cleanup(func() {
		InitTracing(nil, nil)
		_ = tp.Shutdown(context.Background())
	})

	return exporter
}

func TestSpanHelpers(t *testing.T) {
	exporter := setupSpanTest(t, PrefixNamer{Prefix: "svc/"})

	ctx, span := Start(context.Background(), "batch")
	assert.True(t, span.IsRecording())
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))

	_, server := StartServer(ctx, "relay")
	server.End()

	RecordError(ctx, nil)
	RecordError(ctx, errors.New("broker down"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "svc/relay", spans[0].Name)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind)
	assert.Equal(t, "svc/batch", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "broker down", spans[1].Status.Description)
	require.Len(t, spans[1].Events, 1)
}

func TestSetSuccess(t *testing.T) {
	exporter := setupSpanTest(t, nil)

	ctx, span := Start(context.Background(), "op")
	SetSuccess(ctx)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "op", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestInitTracing_NilTracer(t *testing.T) {
	assert.NotPanics(t, func() {
		InitTracing(nil, DefaultNamer{})
	})

	ctx := context.Background()
	ctx2, span := Start(ctx, "op")
	assert.NotNil(t, span)
	assert.Equal(t, ctx, ctx2)
	assert.Empty(t, TraceID(ctx2))
	assert.Empty(t, SpanID(ctx2))
}
