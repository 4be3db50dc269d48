package pulsar

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metric names from the OTel messaging semantic conventions.
const (
	metricOperationDuration = "messaging.client.operation.duration"
	metricSentMessages      = "messaging.client.sent.messages"
	metricConsumedMessages  = "messaging.client.consumed.messages"
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10}

// messagingMetrics holds the client instruments. All fields are safe for
// concurrent use.
type messagingMetrics struct {
	duration metric.Float64Histogram
	sent     metric.Int64Counter
	consumed metric.Int64Counter
}

func newMessagingMetrics(mp metric.MeterProvider, enabled bool) *messagingMetrics {
	if !enabled {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	m := &messagingMetrics{}
	var err error

	m.duration, err = meter.Float64Histogram(metricOperationDuration,
		metric.WithDescription("Duration of messaging operation initiated by a producer or consumer client."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		otel.Handle(fmt.Errorf("otx/pulsar: create %s: %w", metricOperationDuration, err))
		m.duration = noop.Float64Histogram{}
	}

	m.sent, err = meter.Int64Counter(metricSentMessages,
		metric.WithDescription("Number of messages producer attempted to send to the broker."),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		otel.Handle(fmt.Errorf("otx/pulsar: create %s: %w", metricSentMessages, err))
		m.sent = noop.Int64Counter{}
	}

	m.consumed, err = meter.Int64Counter(metricConsumedMessages,
		metric.WithDescription("Number of messages that were delivered to the application."),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		otel.Handle(fmt.Errorf("otx/pulsar: create %s: %w", metricConsumedMessages, err))
		m.consumed = noop.Int64Counter{}
	}

	return m
}

// record adds one operation to the instruments. errType is "" on success.
func (m *messagingMetrics) record(ctx context.Context, op operation, errType string, server serverAddress) {
	attrs := make([]attribute.KeyValue, 0, 6)
	attrs = append(attrs,
		attribute.String(attrMessagingSystem, messagingSystem),
		attribute.String(attrMessagingOperationName, op.name),
		attribute.String(attrMessagingDestinationName, op.destination),
	)
	if errType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errType))
	}
	attrs = append(attrs, server.attributes()...)
	set := metric.WithAttributeSet(attribute.NewSet(attrs...))

	m.duration.Record(ctx, time.Since(op.started).Seconds(), set)

	switch op.name {
	case opSend:
		m.sent.Add(ctx, 1, set)
	case opReceive, opProcess:
		m.consumed.Add(ctx, 1, set)
	}
}
