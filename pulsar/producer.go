package pulsar

import (
	"context"
	"sync"

	"github.com/apache/pulsar-client-go/pulsar"
	"go.opentelemetry.io/otel/trace"
)

// TracedProducer wraps a pulsar.Producer with OpenTelemetry tracing.
// It implements pulsar.Producer, so it can replace the raw producer anywhere.
type TracedProducer struct {
	producer pulsar.Producer
	in       *instrumenter
}

var _ pulsar.Producer = (*TracedProducer)(nil)

// WrapProducer wraps a Producer with tracing.
//
// Panics if p is nil.
func WrapProducer(p pulsar.Producer, opts ...Option) *TracedProducer {
	if p == nil {
		panic("otx/pulsar: producer must not be nil")
	}

	return &TracedProducer{producer: p, in: newInstrumenter(applyOptions(opts))}
}

// Unwrap returns the underlying producer for non-traced operations.
func (p *TracedProducer) Unwrap() pulsar.Producer {
	return p.producer
}

// Topic returns the producer's topic.
func (p *TracedProducer) Topic() string {
	return p.producer.Topic()
}

// Name returns the producer's name.
func (p *TracedProducer) Name() string {
	return p.producer.Name()
}

func (p *TracedProducer) startSend(ctx context.Context, msg *pulsar.ProducerMessage) (context.Context, trace.Span, operation) {
	topic := p.producer.Topic()
	op := newOperation(opSend, topic)
	ctx, span := p.in.start(ctx, trace.SpanKindProducer, op,
		sendAttributes(p.in.cfg, p.in.server, p.producer.Name(), topic, msg))
	p.in.inject(ctx, msg)

	return ctx, span, op
}

// Send publishes msg inside a producer span and writes the span context
// into msg.Properties. The delegate's message ID and error are returned
// unchanged. A nil msg is passed through without a span.
func (p *TracedProducer) Send(ctx context.Context, msg *pulsar.ProducerMessage) (pulsar.MessageID, error) {
	if msg == nil {
		return p.producer.Send(ctx, msg)
	}

	ctx, span, op := p.startSend(ctx, msg)
	defer p.in.finishOnPanic(ctx, span, op)

	id, err := p.producer.Send(ctx, msg)
	if err == nil && id != nil {
		span.SetAttributes(messageIDAttribute(id))
	}
	p.in.finish(ctx, span, op, err)

	return id, err
}

// SendAsync is the asynchronous Send. The span ends when the delegate
// invokes its callback, before callback itself runs.
func (p *TracedProducer) SendAsync(
	ctx context.Context,
	msg *pulsar.ProducerMessage,
	callback func(pulsar.MessageID, *pulsar.ProducerMessage, error),
) {
	if msg == nil {
		p.producer.SendAsync(ctx, msg, callback)
		return
	}

	ctx, span, op := p.startSend(ctx, msg)

	var once sync.Once
	settle := func(id pulsar.MessageID, err error) {
		once.Do(func() {
			if err == nil && id != nil {
				span.SetAttributes(messageIDAttribute(id))
			}
			p.in.finish(ctx, span, op, err)
		})
	}

	defer func() {
		if r := recover(); r != nil {
			settle(nil, panicError(r))
			panic(r)
		}
	}()

	p.producer.SendAsync(ctx, msg, func(id pulsar.MessageID, m *pulsar.ProducerMessage, err error) {
		settle(id, err)
		if callback != nil {
			callback(id, m, err)
		}
	})
}

// LastSequenceID delegates to the underlying producer.
func (p *TracedProducer) LastSequenceID() int64 {
	return p.producer.LastSequenceID()
}

// Flush delegates to the underlying producer.
func (p *TracedProducer) Flush() error {
	return p.producer.Flush()
}

// FlushWithCtx delegates to the underlying producer.
func (p *TracedProducer) FlushWithCtx(ctx context.Context) error {
	return p.producer.FlushWithCtx(ctx)
}

// Close delegates to the underlying producer.
func (p *TracedProducer) Close() {
	p.producer.Close()
}
