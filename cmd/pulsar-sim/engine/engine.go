// Package engine drives traced Pulsar producers and consumers for the
// pulsar-sim CLI.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	otx "github.com/arloliu/otx-pulsar"
	otxpulsar "github.com/arloliu/otx-pulsar/pulsar"
	"github.com/sirupsen/logrus"
)

// ErrTopicRequired is returned by New when no default topic is configured.
var ErrTopicRequired = errors.New("engine: topic is required")

// Config holds engine configuration.
type Config struct {
	Topic        string
	Subscription string
	// Count is the number of messages to produce, or to consume before
	// returning. Zero means consume until the context ends.
	Count    int
	Interval time.Duration
	Payload  string
	Key      string
}

// Engine produces, consumes and relays messages through a traced client.
type Engine struct {
	client *otxpulsar.TracedClient
	cfg    Config
	log    *logrus.Logger
}

// New creates an Engine. A nil logger falls back to the logrus standard logger.
func New(client *otxpulsar.TracedClient, cfg Config, logger *logrus.Logger) (*Engine, error) {
	if client == nil {
		return nil, otxpulsar.ErrNilClient
	}
	if cfg.Topic == "" {
		return nil, ErrTopicRequired
	}
	if cfg.Subscription == "" {
		cfg.Subscription = "pulsar-sim"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Engine{client: client, cfg: cfg, log: logger}, nil
}

// Produce sends Count messages to the configured topic, pausing Interval
// between sends. All sends share one parent span. It returns the number of
// messages the broker acknowledged.
func (e *Engine) Produce(ctx context.Context) (int, error) {
	producer, err := e.client.CreateProducer(pulsar.ProducerOptions{Topic: e.cfg.Topic})
	if err != nil {
		return 0, fmt.Errorf("create producer for %s: %w", e.cfg.Topic, err)
	}
	defer producer.Close()

	ctx, err = otx.WithBaggage(ctx, map[string]string{"sim.topic": e.cfg.Topic})
	if err != nil {
		e.log.WithError(err).Warn("baggage not attached")
	}

	ctx, span := otx.Start(ctx, "produce")
	defer span.End()

	sent := 0
	for i := range e.cfg.Count {
		if i > 0 && !e.wait(ctx) {
			break
		}
		if ctx.Err() != nil {
			break
		}

		id, err := producer.Send(ctx, e.message(i))
		if err != nil {
			otx.RecordError(ctx, err)
			e.log.WithContext(ctx).WithError(err).Error("send failed")

			return sent, fmt.Errorf("send message %d: %w", i+1, err)
		}
		sent++

		entry := e.log.WithContext(ctx).WithField("trace_id", otx.TraceID(ctx))
		if id != nil {
			entry = entry.WithField("message_id", id.String())
		}
		entry.Infof("sent %d/%d", sent, e.cfg.Count)
	}
	otx.SetSuccess(ctx)

	return sent, nil
}

func (e *Engine) wait(ctx context.Context) bool {
	if e.cfg.Interval <= 0 {
		return true
	}

	timer := time.NewTimer(e.cfg.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Engine) message(i int) *pulsar.ProducerMessage {
	seq := strconv.Itoa(i + 1)

	return &pulsar.ProducerMessage{
		Payload:    []byte(e.cfg.Payload + " #" + seq),
		Key:        e.cfg.Key,
		Properties: map[string]string{"sim.seq": seq},
	}
}

// Consume subscribes with a listener and acknowledges every message until
// Count messages were handled or ctx ends. It returns the number handled.
func (e *Engine) Consume(ctx context.Context) (int, error) {
	var handled atomic.Int64
	done := make(chan struct{})

	consumer, err := e.client.SubscribeWithListener(pulsar.ConsumerOptions{
		Topic:            e.cfg.Topic,
		SubscriptionName: e.cfg.Subscription,
		Type:             pulsar.Shared,
	}, func(ctx context.Context, c pulsar.Consumer, msg pulsar.Message) error {
		e.log.WithContext(ctx).WithFields(logrus.Fields{
			"topic":    msg.Topic(),
			"key":      msg.Key(),
			"trace_id": otx.TraceID(ctx),
		}).Infof("received %q", msg.Payload())

		if err := c.Ack(msg); err != nil {
			return fmt.Errorf("ack: %w", err)
		}
		if n := handled.Add(1); e.cfg.Count > 0 && n == int64(e.cfg.Count) {
			close(done)
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("subscribe %s/%s: %w", e.cfg.Topic, e.cfg.Subscription, err)
	}

	select {
	case <-ctx.Done():
	case <-done:
	}
	consumer.Close()

	return int(handled.Load()), nil
}
