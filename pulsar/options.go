package pulsar

import (
	"context"

	"github.com/apache/pulsar-client-go/pulsar"
	otx "github.com/arloliu/otx-pulsar"
	"github.com/arloliu/otx-pulsar/internal/tracker"
	"go.opentelemetry.io/otel"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/arloliu/otx-pulsar/pulsar"

// ListenerErrorHandler decides what happens to a message whose listener
// returned an error. The default negatively acknowledges it.
type ListenerErrorHandler func(ctx context.Context, consumer pulsar.Consumer, msg pulsar.Message, err error)

// options holds configuration for the tracing proxies.
type options struct {
	tp         trace.TracerProvider
	tracerName string
	prop       propagation.TextMapPropagator
	mp         metric.MeterProvider
	lp         otellog.LoggerProvider
	namer      otx.SpanNamer
	onError    ListenerErrorHandler
	cfg        Config
}

func defaultOptions() options {
	return options{
		tracerName: instrumentationName,
		onError:    nackOnError,
	}
}

// Option configures tracing behavior.
type Option func(*options)

// WithTracerProvider sets the TracerProvider. Without it the tracer installed
// by otx.InitTracing is used, then the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tp = tp
	}
}

// WithTracerName sets a custom tracer name.
// Default is the package import path.
func WithTracerName(name string) Option {
	return func(o *options) {
		o.tracerName = name
	}
}

// WithPropagator sets the propagator used to write and read message
// properties. If not set, the global propagator is used.
func WithPropagator(prop propagation.TextMapPropagator) Option {
	return func(o *options) {
		o.prop = prop
	}
}

// WithMeterProvider sets the MeterProvider for the messaging metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.mp = mp
	}
}

// WithLoggerProvider sets the LoggerProvider that receives warnings about
// propagation failures.
func WithLoggerProvider(lp otellog.LoggerProvider) Option {
	return func(o *options) {
		o.lp = lp
	}
}

// WithConfig replaces the whole instrumentation config, e.g. one read by
// LoadConfig. Options applied after it still override single fields.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithCaptureMessagePayload records the payload size on every span.
func WithCaptureMessagePayload(enabled bool) Option {
	return func(o *options) {
		o.cfg.CaptureMessagePayload = enabled
	}
}

// WithSpanNamePrefix prepends prefix to span names.
func WithSpanNamePrefix(prefix string) Option {
	return func(o *options) {
		o.cfg.SpanNamePrefix = prefix
	}
}

// WithPropagationKey packs the trace context into a single property named key.
func WithPropagationKey(key string) Option {
	return func(o *options) {
		o.cfg.PropagationKey = key
	}
}

// WithServiceURL sets the broker URL reported on spans.
func WithServiceURL(url string) Option {
	return func(o *options) {
		o.cfg.ServiceURL = url
	}
}

// WithSpanNamer post-processes every span name.
// Default is the namer installed by otx.InitTracing.
func WithSpanNamer(namer otx.SpanNamer) Option {
	return func(o *options) {
		o.namer = namer
	}
}

// WithListenerErrorHandler replaces the failure policy applied when a
// listener returns an error. A nil handler leaves the message alone.
func WithListenerErrorHandler(h ListenerErrorHandler) Option {
	return func(o *options) {
		if h == nil {
			h = func(context.Context, pulsar.Consumer, pulsar.Message, error) {}
		}
		o.onError = h
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func nackOnError(_ context.Context, consumer pulsar.Consumer, msg pulsar.Message, _ error) {
	consumer.Nack(msg)
}

// getTracer resolves the tracer: explicit provider, then the tracer set by
// otx.InitTracing, then the global provider.
func getTracer(o options) trace.Tracer {
	if o.tp != nil {
		return o.tp.Tracer(o.tracerName)
	}

	if o.tracerName == instrumentationName {
		if t := tracker.Tracer(); t != nil {
			return t
		}
	}

	return otel.GetTracerProvider().Tracer(o.tracerName)
}

func getPropagator(o options) propagation.TextMapPropagator {
	if o.prop != nil {
		return o.prop
	}

	return otel.GetTextMapPropagator()
}

func getMeterProvider(o options) metric.MeterProvider {
	if o.mp != nil {
		return o.mp
	}

	return otel.GetMeterProvider()
}

func getLogger(o options) otellog.Logger {
	lp := o.lp
	if lp == nil {
		lp = global.GetLoggerProvider()
	}

	return lp.Logger(o.tracerName)
}
