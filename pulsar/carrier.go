package pulsar

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/apache/pulsar-client-go/pulsar"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// propertiesCarrier adapts Pulsar message properties to
// propagation.TextMapCarrier.
type propertiesCarrier map[string]string

// Get returns the value for key, or "".
func (c propertiesCarrier) Get(key string) string {
	return c[key]
}

// Set stores the key-value pair.
func (c propertiesCarrier) Set(key, value string) {
	c[key] = value
}

// Keys returns all property names.
func (c propertiesCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}

	return keys
}

// encodeProperties runs prop.Inject into a scratch carrier and returns the
// properties to merge into the message. With a non-empty key the fields are
// packed as one JSON object under key. A panicking propagator is reported
// as an error.
func encodeProperties(ctx context.Context, prop propagation.TextMapPropagator, key string) (out map[string]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("inject trace context: panic: %v", r)
		}
	}()

	fields := propertiesCarrier{}
	prop.Inject(ctx, fields)
	if len(fields) == 0 || key == "" {
		return fields, nil
	}

	packed, err := json.Marshal(map[string]string(fields))
	if err != nil {
		return nil, fmt.Errorf("pack trace context: %w", err)
	}

	return map[string]string{key: string(packed)}, nil
}

// decodeProperties is the inverse of encodeProperties. Absent fields leave
// ctx unchanged; a malformed packed property is an error and also leaves
// ctx unchanged.
func decodeProperties(
	ctx context.Context,
	prop propagation.TextMapPropagator,
	key string,
	props map[string]string,
) (out context.Context, err error) {
	if len(props) == 0 {
		return ctx, nil
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = ctx, fmt.Errorf("extract trace context: panic: %v", r)
		}
	}()

	if key == "" {
		return prop.Extract(ctx, propertiesCarrier(props)), nil
	}

	raw, ok := props[key]
	if !ok {
		return ctx, nil
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return ctx, fmt.Errorf("unpack trace context from %q: %w", key, err)
	}

	return prop.Extract(ctx, propertiesCarrier(fields)), nil
}

// Inject writes the trace context in ctx into msg.Properties using the
// global propagator. Nil Properties are initialized. Inject never fails the
// send: on error nothing is written and the error goes to otel.Handle.
func Inject(ctx context.Context, msg *pulsar.ProducerMessage) {
	InjectWithPropagator(ctx, msg, otel.GetTextMapPropagator())
}

// InjectWithPropagator is Inject with an explicit propagator.
func InjectWithPropagator(ctx context.Context, msg *pulsar.ProducerMessage, prop propagation.TextMapPropagator) {
	if msg == nil {
		return
	}

	fields, err := encodeProperties(ctx, prop, "")
	if err != nil {
		otel.Handle(fmt.Errorf("otx/pulsar: %w", err))
		return
	}

	if msg.Properties == nil {
		msg.Properties = make(map[string]string, len(fields))
	}
	maps.Copy(msg.Properties, fields)
}

// Extract returns ctx carrying the remote span context found in props,
// using the global propagator. Missing or malformed fields return ctx
// unchanged.
func Extract(ctx context.Context, props map[string]string) context.Context {
	return ExtractWithPropagator(ctx, props, otel.GetTextMapPropagator())
}

// ExtractWithPropagator is Extract with an explicit propagator.
func ExtractWithPropagator(ctx context.Context, props map[string]string, prop propagation.TextMapPropagator) context.Context {
	out, err := decodeProperties(ctx, prop, "", props)
	if err != nil {
		otel.Handle(fmt.Errorf("otx/pulsar: %w", err))
	}

	return out
}

// SpanContextFromProperties decodes the producer's span context from
// message properties. ok is false when none is present or it is invalid.
func SpanContextFromProperties(props map[string]string) (sc trace.SpanContext, ok bool) {
	sc = trace.SpanContextFromContext(Extract(context.Background(), props))

	return sc, sc.IsValid()
}
