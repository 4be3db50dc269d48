package pulsar

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	otx "github.com/arloliu/otx-pulsar"
	"github.com/arloliu/otx-pulsar/internal/tracker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// operation describes one traced call for naming and metrics.
type operation struct {
	name        string
	destination string
	started     time.Time
}

// instrumenter creates, names and finishes spans. One instrumenter is
// shared by a client and every producer and consumer created from it; it is
// never mutated after construction.
type instrumenter struct {
	tracer  trace.Tracer
	prop    propagation.TextMapPropagator
	cfg     Config
	namer   otx.SpanNamer
	server  serverAddress
	metrics *messagingMetrics
	logger  otellog.Logger
	onError ListenerErrorHandler
}

func newInstrumenter(o options) *instrumenter {
	return &instrumenter{
		tracer:  getTracer(o),
		prop:    getPropagator(o),
		cfg:     o.cfg,
		namer:   o.namer,
		server:  parseServiceURL(o.cfg.ServiceURL),
		metrics: newMessagingMetrics(getMeterProvider(o), o.cfg.MetricsEnabled()),
		logger:  getLogger(o),
		onError: o.onError,
	}
}

func newOperation(name, destination string) operation {
	return operation{name: name, destination: destination, started: time.Now()}
}

// spanName returns "[prefix]<destination> <operation>" passed through the namer.
func (in *instrumenter) spanName(op operation) string {
	name := in.cfg.SpanNamePrefix + otx.NameMessaging(op.destination, op.name)
	if in.namer != nil {
		return in.namer.Name(name)
	}

	return tracker.Name(name)
}

func (in *instrumenter) start(
	ctx context.Context,
	kind trace.SpanKind,
	op operation,
	attrs []attribute.KeyValue,
) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, in.spanName(op),
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
}

// startFromMessage starts a consumer span parented on the context carried
// by msg, falling back to ctx when the message has none.
func (in *instrumenter) startFromMessage(
	ctx context.Context,
	op operation,
	msg pulsar.Message,
	attrs []attribute.KeyValue,
) (context.Context, trace.Span) {
	return in.start(in.extract(ctx, msg.Properties()), trace.SpanKindConsumer, op, attrs)
}

// finish sets the span status from err, ends the span and records metrics.
func (in *instrumenter) finish(ctx context.Context, span trace.Span, op operation, err error) {
	var errType string
	if err != nil {
		errType = errorType(err)
		span.RecordError(err)
		span.SetAttributes(attribute.String(attrErrorType, errType))
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	in.metrics.record(ctx, op, errType, in.server)
}

// finishOnPanic is deferred around delegate calls. It ends the span as
// failed and re-panics with the original value.
func (in *instrumenter) finishOnPanic(ctx context.Context, span trace.Span, op operation) {
	if r := recover(); r != nil {
		in.finish(ctx, span, op, panicError(r))
		panic(r)
	}
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}

	return fmt.Errorf("panic: %v", r)
}

// inject writes the span context in ctx into msg. Failures are reported and
// leave the message untouched.
func (in *instrumenter) inject(ctx context.Context, msg *pulsar.ProducerMessage) {
	fields, err := encodeProperties(ctx, in.prop, in.cfg.PropagationKey)
	if err != nil {
		in.reportInternal(ctx, "inject", err)
		return
	}
	if len(fields) == 0 {
		return
	}

	if msg.Properties == nil {
		msg.Properties = make(map[string]string, len(fields))
	}
	maps.Copy(msg.Properties, fields)
}

// extract returns ctx with the remote parent found in props, or ctx itself.
func (in *instrumenter) extract(ctx context.Context, props map[string]string) context.Context {
	out, err := decodeProperties(ctx, in.prop, in.cfg.PropagationKey, props)
	if err != nil {
		in.reportInternal(ctx, "extract", err)
	}

	return out
}

// reportInternal routes an instrumentation failure to otel.Handle and emits
// a WARN log record. It never affects the messaging call.
func (in *instrumenter) reportInternal(ctx context.Context, stage string, err error) {
	otel.Handle(fmt.Errorf("otx/pulsar: %s: %w", stage, err))

	var rec otellog.Record
	rec.SetTimestamp(time.Now())
	rec.SetSeverity(otellog.SeverityWarn)
	rec.SetSeverityText("WARN")
	rec.SetBody(otellog.StringValue("trace context propagation failed"))
	rec.AddAttributes(
		otellog.String(attrMessagingSystem, messagingSystem),
		otellog.String("otx.pulsar.stage", stage),
		otellog.String("exception.message", err.Error()),
	)
	in.logger.Emit(ctx, rec)
}

// errorType maps err to a low-cardinality error.type value.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return fmt.Sprintf("%T", err)
	}
}
