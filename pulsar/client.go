package pulsar

import (
	"fmt"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
)

// listenerQueueSize is the MessageChannel capacity created for
// SubscribeWithListener when the caller provides none.
const listenerQueueSize = 100

// TracedClient wraps a pulsar.Client so that every producer and consumer it
// creates is traced. It implements pulsar.Client.
type TracedClient struct {
	client pulsar.Client
	in     *instrumenter
}

var _ pulsar.Client = (*TracedClient)(nil)

// NewClient creates a Pulsar client and wraps it. options.URL is reported
// as the broker address unless WithServiceURL or WithConfig sets one.
func NewClient(options pulsar.ClientOptions, opts ...Option) (*TracedClient, error) {
	client, err := pulsar.NewClient(options)
	if err != nil {
		return nil, fmt.Errorf("otx/pulsar: create client: %w", err)
	}

	o := applyOptions(opts)
	if o.cfg.ServiceURL == "" {
		o.cfg.ServiceURL = options.URL
	}

	return &TracedClient{client: client, in: newInstrumenter(o)}, nil
}

// WrapClient wraps an existing client.
func WrapClient(client pulsar.Client, opts ...Option) (*TracedClient, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	return &TracedClient{client: client, in: newInstrumenter(applyOptions(opts))}, nil
}

// Unwrap returns the underlying client.
func (c *TracedClient) Unwrap() pulsar.Client {
	return c.client
}

// CreateProducer creates a producer and returns it as a *TracedProducer.
// Errors from the underlying client are returned unchanged.
func (c *TracedClient) CreateProducer(options pulsar.ProducerOptions) (pulsar.Producer, error) {
	p, err := c.client.CreateProducer(options)
	if err != nil {
		return nil, err
	}

	return &TracedProducer{producer: p, in: c.in}, nil
}

// Subscribe creates a consumer and returns it as a *TracedConsumer.
// Errors from the underlying client are returned unchanged.
func (c *TracedClient) Subscribe(options pulsar.ConsumerOptions) (pulsar.Consumer, error) {
	consumer, err := c.client.Subscribe(options)
	if err != nil {
		return nil, err
	}

	return &TracedConsumer{consumer: consumer, in: c.in}, nil
}

// SubscribeWithListener subscribes and pushes every message to listener on a
// dedicated goroutine, each call inside a process span. If
// options.MessageChannel is nil a channel is created; options itself is not
// modified. A listener error is passed to the ListenerErrorHandler, which
// nacks the message by default. A panicking listener is not recovered.
//
// Close the returned consumer to stop dispatch.
func (c *TracedClient) SubscribeWithListener(options pulsar.ConsumerOptions, listener Listener) (*TracedConsumer, error) {
	if listener == nil {
		return nil, ErrNilListener
	}

	if options.MessageChannel == nil {
		options.MessageChannel = make(chan pulsar.ConsumerMessage, listenerQueueSize)
	}

	consumer, err := c.client.Subscribe(options)
	if err != nil {
		return nil, err
	}

	tc := &TracedConsumer{consumer: consumer, in: c.in}
	tc.dispatch = newDispatcher(options.MessageChannel, c.in.wrapListener(listener), c.in.onError)
	go tc.dispatch.run(dispatchHandle{tc})

	return tc, nil
}

// CreateReader delegates to the underlying client. Readers are not traced.
func (c *TracedClient) CreateReader(options pulsar.ReaderOptions) (pulsar.Reader, error) {
	return c.client.CreateReader(options)
}

// CreateTableView delegates to the underlying client.
func (c *TracedClient) CreateTableView(options pulsar.TableViewOptions) (pulsar.TableView, error) {
	return c.client.CreateTableView(options)
}

// TopicPartitions delegates to the underlying client.
func (c *TracedClient) TopicPartitions(topic string) ([]string, error) {
	return c.client.TopicPartitions(topic)
}

// NewTransaction delegates to the underlying client.
func (c *TracedClient) NewTransaction(timeout time.Duration) (pulsar.Transaction, error) {
	return c.client.NewTransaction(timeout)
}

// Close delegates to the underlying client.
func (c *TracedClient) Close() {
	c.client.Close()
}
