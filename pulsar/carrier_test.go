package pulsar

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"pgregory.net/rapid"
)

func TestPropertiesCarrier_GetSetKeys(t *testing.T) {
	carrier := propertiesCarrier{}

	carrier.Set("traceparent", "00-abc-def-01")
	carrier.Set("tracestate", "key=value")

	assert.Equal(t, "00-abc-def-01", carrier.Get("traceparent"))
	assert.Equal(t, "", carrier.Get("nonexistent"))
	assert.ElementsMatch(t, []string{"traceparent", "tracestate"}, carrier.Keys())
}

func TestInject_NilProperties(t *testing.T) {
	_, tp := setupPulsarTest(t)

	msg := &pulsar.ProducerMessage{Payload: []byte("x")}
	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	defer span.End()

	Inject(ctx, msg)

	require.NotNil(t, msg.Properties)
	assert.NotEmpty(t, msg.Properties["traceparent"])
}

func TestInject_KeepsUserProperties(t *testing.T) {
	_, tp := setupPulsarTest(t)

	msg := &pulsar.ProducerMessage{Properties: map[string]string{"tenant": "acme"}}
	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	defer span.End()

	Inject(ctx, msg)

	assert.Equal(t, "acme", msg.Properties["tenant"])
	assert.NotEmpty(t, msg.Properties["traceparent"])
}

func TestInject_NoSpanWritesNothing(t *testing.T) {
	setupPulsarTest(t)

	msg := &pulsar.ProducerMessage{}
	Inject(context.Background(), msg)
	assert.Empty(t, msg.Properties)

	assert.NotPanics(t, func() { Inject(context.Background(), nil) })
}

func TestExtract_NilAndMalformed(t *testing.T) {
	setupPulsarTest(t)
	ctx := context.Background()

	assert.Equal(t, ctx, Extract(ctx, nil))

	out := Extract(ctx, map[string]string{"traceparent": "not-a-traceparent"})
	assert.False(t, trace.SpanContextFromContext(out).IsValid())

	_, ok := SpanContextFromProperties(map[string]string{"traceparent": "00-zz"})
	assert.False(t, ok)
}

func TestInjectExtract_RoundTrip(t *testing.T) {
	_, tp := setupPulsarTest(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	defer span.End()

	msg := &pulsar.ProducerMessage{}
	InjectWithPropagator(ctx, msg, propagation.TraceContext{})

	got := trace.SpanContextFromContext(ExtractWithPropagator(context.Background(), msg.Properties, propagation.TraceContext{}))
	assert.Equal(t, span.SpanContext().TraceID(), got.TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), got.SpanID())
	assert.True(t, got.IsRemote())
}

func TestDecodeProperties_PackedMalformed(t *testing.T) {
	ctx := context.Background()

	out, err := decodeProperties(ctx, propagation.TraceContext{}, "otel", map[string]string{"otel": "{not json"})
	require.Error(t, err)
	assert.Equal(t, ctx, out)

	out, err = decodeProperties(ctx, propagation.TraceContext{}, "otel", map[string]string{"other": "v"})
	require.NoError(t, err)
	assert.Equal(t, ctx, out)
}

type panicPropagator struct{}

func (panicPropagator) Inject(context.Context, propagation.TextMapCarrier) { panic("inject exploded") }
func (panicPropagator) Extract(context.Context, propagation.TextMapCarrier) context.Context {
	panic("extract exploded")
}
func (panicPropagator) Fields() []string { return []string{"traceparent"} }

func TestCodec_PanickingPropagatorIsContained(t *testing.T) {
	var handled []error
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) { handled = append(handled, err) }))
	t.Cleanup(func() {
		otel.SetErrorHandler(otel.ErrorHandlerFunc(func(error) {}))
	})

	msg := &pulsar.ProducerMessage{}
	assert.NotPanics(t, func() {
		InjectWithPropagator(context.Background(), msg, panicPropagator{})
	})
	assert.Empty(t, msg.Properties)

	ctx := context.Background()
	var out context.Context
	assert.NotPanics(t, func() {
		out = ExtractWithPropagator(ctx, map[string]string{"traceparent": "x"}, panicPropagator{})
	})
	assert.Equal(t, ctx, out)
	assert.Len(t, handled, 2)
}

func drawSpanContext(t *rapid.T) trace.SpanContext {
	var tid trace.TraceID
	binary.BigEndian.PutUint64(tid[:8], rapid.Uint64().Draw(t, "traceHi"))
	binary.BigEndian.PutUint64(tid[8:], rapid.Uint64Min(1).Draw(t, "traceLo"))

	var sid trace.SpanID
	binary.BigEndian.PutUint64(sid[:], rapid.Uint64Min(1).Draw(t, "span"))

	flags := trace.TraceFlags(0)
	if rapid.Bool().Draw(t, "sampled") {
		flags = trace.FlagsSampled
	}

	return trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: flags})
}

func TestCodec_RoundTripProperty(t *testing.T) {
	prop := propagation.TraceContext{}

	rapid.Check(t, func(t *rapid.T) {
		sc := drawSpanContext(t)
		key := rapid.SampledFrom([]string{"", "otel-context", "x-trace"}).Draw(t, "key")

		ctx := trace.ContextWithSpanContext(context.Background(), sc)
		fields, err := encodeProperties(ctx, prop, key)
		require.NoError(t, err)
		if key != "" {
			require.Len(t, fields, 1)
			require.Contains(t, fields, key)
		}

		out, err := decodeProperties(context.Background(), prop, key, fields)
		require.NoError(t, err)

		got := trace.SpanContextFromContext(out)
		assert.Equal(t, sc.TraceID(), got.TraceID())
		assert.Equal(t, sc.SpanID(), got.SpanID())
		assert.Equal(t, sc.TraceFlags(), got.TraceFlags())
	})
}

func TestCodec_DecodeNeverPanicsProperty(t *testing.T) {
	prop := propagation.TraceContext{}

	rapid.Check(t, func(t *rapid.T) {
		props := rapid.MapOf(
			rapid.SampledFrom([]string{"traceparent", "tracestate", "otel", "tenant"}),
			rapid.String(),
		).Draw(t, "props")
		key := rapid.SampledFrom([]string{"", "otel"}).Draw(t, "key")

		ctx := context.Background()
		out, err := decodeProperties(ctx, prop, key, props)
		require.NotNil(t, out)
		if err != nil {
			assert.Equal(t, ctx, out)
		}
	})
}
