package pulsar

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupPulsarTest(t *testing.T) (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return exporter, tp
}

func testOptions(tp *sdktrace.TracerProvider, extra ...Option) []Option {
	return append([]Option{
		WithTracerProvider(tp),
		WithPropagator(propagation.TraceContext{}),
	}, extra...)
}

func spanAttrMap(attrs []attribute.KeyValue) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}

	return m
}

// fakeMessage implements pulsar.Message.
type fakeMessage struct {
	topic      string
	props      map[string]string
	payload    []byte
	id         pulsar.MessageID
	key        string
	redelivery uint32
}

func (m *fakeMessage) Topic() string                                   { return m.topic }
func (m *fakeMessage) Properties() map[string]string                   { return m.props }
func (m *fakeMessage) Payload() []byte                                 { return m.payload }
func (m *fakeMessage) ID() pulsar.MessageID                            { return m.id }
func (m *fakeMessage) PublishTime() time.Time                          { return time.Time{} }
func (m *fakeMessage) EventTime() time.Time                            { return time.Time{} }
func (m *fakeMessage) Key() string                                     { return m.key }
func (m *fakeMessage) OrderingKey() string                             { return "" }
func (m *fakeMessage) RedeliveryCount() uint32                         { return m.redelivery }
func (m *fakeMessage) IsReplicated() bool                              { return false }
func (m *fakeMessage) GetReplicatedFrom() string                       { return "" }
func (m *fakeMessage) GetSchemaValue(any) error                        { return nil }
func (m *fakeMessage) ProducerName() string                            { return "" }
func (m *fakeMessage) SchemaVersion() []byte                           { return nil }
func (m *fakeMessage) GetEncryptionContext() *pulsar.EncryptionContext { return nil }
func (m *fakeMessage) Index() *uint64                                  { return nil }
func (m *fakeMessage) BrokerPublishTime() *time.Time                   { return nil }

// fakeProducer implements pulsar.Producer.
type fakeProducer struct {
	topic   string
	name    string
	sendFn  func(ctx context.Context, msg *pulsar.ProducerMessage) (pulsar.MessageID, error)
	asyncFn func(ctx context.Context, msg *pulsar.ProducerMessage, cb func(pulsar.MessageID, *pulsar.ProducerMessage, error))
	closed  bool
	flushed bool
}

func (p *fakeProducer) Topic() string { return p.topic }
func (p *fakeProducer) Name() string  { return p.name }

func (p *fakeProducer) Send(ctx context.Context, msg *pulsar.ProducerMessage) (pulsar.MessageID, error) {
	if p.sendFn != nil {
		return p.sendFn(ctx, msg)
	}

	return pulsar.EarliestMessageID(), nil
}

func (p *fakeProducer) SendAsync(
	ctx context.Context,
	msg *pulsar.ProducerMessage,
	cb func(pulsar.MessageID, *pulsar.ProducerMessage, error),
) {
	if p.asyncFn != nil {
		p.asyncFn(ctx, msg, cb)
		return
	}
	cb(pulsar.EarliestMessageID(), msg, nil)
}

func (p *fakeProducer) LastSequenceID() int64              { return 42 }
func (p *fakeProducer) Flush() error                       { p.flushed = true; return nil }
func (p *fakeProducer) FlushWithCtx(context.Context) error { p.flushed = true; return nil }
func (p *fakeProducer) Close()                             { p.closed = true }

// fakeConsumer implements pulsar.Consumer.
type fakeConsumer struct {
	subscription string
	name         string
	receiveFn    func(ctx context.Context) (pulsar.Message, error)

	mu     sync.Mutex
	acked  []pulsar.Message
	nacked []pulsar.Message
	closed bool
}

func (c *fakeConsumer) Subscription() string                                { return c.subscription }
func (c *fakeConsumer) Unsubscribe() error                                  { return nil }
func (c *fakeConsumer) UnsubscribeForce() error                             { return nil }
func (c *fakeConsumer) GetLastMessageIDs() ([]pulsar.TopicMessageID, error) { return nil, nil }

func (c *fakeConsumer) Receive(ctx context.Context) (pulsar.Message, error) {
	if c.receiveFn != nil {
		return c.receiveFn(ctx)
	}
	<-ctx.Done()

	return nil, ctx.Err()
}

func (c *fakeConsumer) Chan() <-chan pulsar.ConsumerMessage { return nil }

func (c *fakeConsumer) Ack(msg pulsar.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acked = append(c.acked, msg)

	return nil
}

func (c *fakeConsumer) AckID(pulsar.MessageID) error                          { return nil }
func (c *fakeConsumer) AckIDList([]pulsar.MessageID) error                    { return nil }
func (c *fakeConsumer) AckWithTxn(pulsar.Message, pulsar.Transaction) error   { return nil }
func (c *fakeConsumer) AckCumulative(pulsar.Message) error                    { return nil }
func (c *fakeConsumer) AckIDCumulative(pulsar.MessageID) error                { return nil }
func (c *fakeConsumer) ReconsumeLater(pulsar.Message, time.Duration)          {}
func (c *fakeConsumer) NackID(pulsar.MessageID)                               {}
func (c *fakeConsumer) Seek(pulsar.MessageID) error                           { return nil }
func (c *fakeConsumer) SeekByTime(time.Time) error                            { return nil }
func (c *fakeConsumer) Name() string                                          { return c.name }
func (c *fakeConsumer) ReconsumeLaterWithCustomProperties(pulsar.Message, map[string]string, time.Duration) {
}

func (c *fakeConsumer) Nack(msg pulsar.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nacked = append(c.nacked, msg)
}

func (c *fakeConsumer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConsumer) snapshot() (acked, nacked int, closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.acked), len(c.nacked), c.closed
}

// fakeReader implements pulsar.Reader.
type fakeReader struct{}

func (fakeReader) Topic() string                               { return "orders" }
func (fakeReader) Next(context.Context) (pulsar.Message, error) { return nil, nil }
func (fakeReader) HasNext() bool                               { return false }
func (fakeReader) Close()                                      {}
func (fakeReader) Seek(pulsar.MessageID) error                 { return nil }
func (fakeReader) SeekByTime(time.Time) error                  { return nil }
func (fakeReader) GetLastMessageID() (pulsar.MessageID, error) { return nil, nil }

// fakeClient implements pulsar.Client.
type fakeClient struct {
	producer     pulsar.Producer
	consumer     pulsar.Consumer
	producerErr  error
	subscribeErr error

	lastConsumerOptions pulsar.ConsumerOptions
	closed              bool
}

func (c *fakeClient) CreateProducer(pulsar.ProducerOptions) (pulsar.Producer, error) {
	if c.producerErr != nil {
		return nil, c.producerErr
	}

	return c.producer, nil
}

func (c *fakeClient) Subscribe(options pulsar.ConsumerOptions) (pulsar.Consumer, error) {
	c.lastConsumerOptions = options
	if c.subscribeErr != nil {
		return nil, c.subscribeErr
	}

	return c.consumer, nil
}

func (c *fakeClient) CreateReader(pulsar.ReaderOptions) (pulsar.Reader, error) {
	return fakeReader{}, nil
}

func (c *fakeClient) CreateTableView(pulsar.TableViewOptions) (pulsar.TableView, error) {
	return nil, nil
}

func (c *fakeClient) TopicPartitions(topic string) ([]string, error) {
	return []string{topic + "-partition-0"}, nil
}

func (c *fakeClient) NewTransaction(time.Duration) (pulsar.Transaction, error) {
	return nil, nil
}

func (c *fakeClient) Close() { c.closed = true }
