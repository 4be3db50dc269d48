package pulsar

import (
	"context"
	"sync"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
)

// TracedConsumer wraps a pulsar.Consumer with OpenTelemetry tracing.
// It implements pulsar.Consumer; only Receive is traced.
type TracedConsumer struct {
	consumer pulsar.Consumer
	in       *instrumenter

	// dispatch is set for consumers created by SubscribeWithListener.
	dispatch  *dispatcher
	closeOnce sync.Once
}

var _ pulsar.Consumer = (*TracedConsumer)(nil)

// WrapConsumer wraps a Consumer with tracing.
//
// Panics if c is nil.
func WrapConsumer(c pulsar.Consumer, opts ...Option) *TracedConsumer {
	if c == nil {
		panic("otx/pulsar: consumer must not be nil")
	}

	return &TracedConsumer{consumer: c, in: newInstrumenter(applyOptions(opts))}
}

// Unwrap returns the underlying consumer for non-traced operations.
func (c *TracedConsumer) Unwrap() pulsar.Consumer {
	return c.consumer
}

// Receive blocks for the next message and records a receive span for it.
// The span's parent is the producer span that sent the message, if the
// message carries one. Errors from the delegate are returned unchanged and
// produce no span.
func (c *TracedConsumer) Receive(ctx context.Context) (pulsar.Message, error) {
	_, msg, err := c.ReceiveWithContext(ctx)
	return msg, err
}

// ReceiveWithContext is Receive that also returns a context carrying the
// receive span, so processing work can be traced as its child.
//
// The receive span is a point-in-time event: it ends before this method
// returns.
func (c *TracedConsumer) ReceiveWithContext(ctx context.Context) (context.Context, pulsar.Message, error) {
	started := time.Now()
	msg, err := c.consumer.Receive(ctx)
	if err != nil || msg == nil {
		return ctx, msg, err
	}

	op := operation{name: opReceive, destination: msg.Topic(), started: started}
	spanCtx, span := c.in.startFromMessage(ctx, op, msg,
		consumeAttributes(c.in.cfg, c.in.server, opReceive, c.consumer.Subscription(), c.consumer.Name(), msg))
	c.in.finish(spanCtx, span, op, nil)

	return spanCtx, msg, nil
}

// Subscription delegates to the underlying consumer.
func (c *TracedConsumer) Subscription() string {
	return c.consumer.Subscription()
}

// Unsubscribe delegates to the underlying consumer.
func (c *TracedConsumer) Unsubscribe() error {
	return c.consumer.Unsubscribe()
}

// UnsubscribeForce delegates to the underlying consumer.
func (c *TracedConsumer) UnsubscribeForce() error {
	return c.consumer.UnsubscribeForce()
}

// GetLastMessageIDs delegates to the underlying consumer.
func (c *TracedConsumer) GetLastMessageIDs() ([]pulsar.TopicMessageID, error) {
	return c.consumer.GetLastMessageIDs()
}

// Chan delegates to the underlying consumer. For a consumer created by
// SubscribeWithListener the channel is drained by the listener.
func (c *TracedConsumer) Chan() <-chan pulsar.ConsumerMessage {
	return c.consumer.Chan()
}

// Ack delegates to the underlying consumer.
func (c *TracedConsumer) Ack(msg pulsar.Message) error {
	return c.consumer.Ack(msg)
}

// AckID delegates to the underlying consumer.
func (c *TracedConsumer) AckID(id pulsar.MessageID) error {
	return c.consumer.AckID(id)
}

// AckIDList delegates to the underlying consumer.
func (c *TracedConsumer) AckIDList(ids []pulsar.MessageID) error {
	return c.consumer.AckIDList(ids)
}

// AckWithTxn delegates to the underlying consumer.
func (c *TracedConsumer) AckWithTxn(msg pulsar.Message, txn pulsar.Transaction) error {
	return c.consumer.AckWithTxn(msg, txn)
}

// AckCumulative delegates to the underlying consumer.
func (c *TracedConsumer) AckCumulative(msg pulsar.Message) error {
	return c.consumer.AckCumulative(msg)
}

// AckIDCumulative delegates to the underlying consumer.
func (c *TracedConsumer) AckIDCumulative(id pulsar.MessageID) error {
	return c.consumer.AckIDCumulative(id)
}

// ReconsumeLater delegates to the underlying consumer.
func (c *TracedConsumer) ReconsumeLater(msg pulsar.Message, delay time.Duration) {
	c.consumer.ReconsumeLater(msg, delay)
}

// ReconsumeLaterWithCustomProperties delegates to the underlying consumer.
func (c *TracedConsumer) ReconsumeLaterWithCustomProperties(msg pulsar.Message, props map[string]string, delay time.Duration) {
	c.consumer.ReconsumeLaterWithCustomProperties(msg, props, delay)
}

// Nack delegates to the underlying consumer.
func (c *TracedConsumer) Nack(msg pulsar.Message) {
	c.consumer.Nack(msg)
}

// NackID delegates to the underlying consumer.
func (c *TracedConsumer) NackID(id pulsar.MessageID) {
	c.consumer.NackID(id)
}

// Seek delegates to the underlying consumer.
func (c *TracedConsumer) Seek(id pulsar.MessageID) error {
	return c.consumer.Seek(id)
}

// SeekByTime delegates to the underlying consumer.
func (c *TracedConsumer) SeekByTime(t time.Time) error {
	return c.consumer.SeekByTime(t)
}

// Name delegates to the underlying consumer.
func (c *TracedConsumer) Name() string {
	return c.consumer.Name()
}

// Close stops listener dispatch, waiting for an in-flight listener call to
// return, then closes the underlying consumer. Later calls are no-ops.
//
// A listener that wants to stop its own subscription closes the consumer it
// was given; that handle does not wait for the call in progress.
func (c *TracedConsumer) Close() {
	c.close(true)
}

func (c *TracedConsumer) close(wait bool) {
	c.closeOnce.Do(func() {
		if c.dispatch != nil {
			c.dispatch.stop(wait)
		}
		c.consumer.Close()
	})
}
