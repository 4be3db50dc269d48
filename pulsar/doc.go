// Package pulsar provides OpenTelemetry tracing for the Apache Pulsar Go client.
//
// The package wraps pulsar.Client, pulsar.Producer and pulsar.Consumer with
// drop-in proxies. Each proxy implements the same interface as the value it
// wraps, so instrumented handles can be passed anywhere a raw one is expected.
//
// # Producer
//
// Every Send and SendAsync runs inside a producer span named
// "<topic> send". The span context is written into the message properties,
// so the consumer side can continue the trace:
//
//	client, err := otxpulsar.NewClient(pulsar.ClientOptions{URL: "pulsar://localhost:6650"})
//	if err != nil {
//	    return err
//	}
//	producer, err := client.CreateProducer(pulsar.ProducerOptions{Topic: "orders"})
//	id, err := producer.Send(ctx, &pulsar.ProducerMessage{Payload: data})
//
// # Consumer
//
// Receive decodes the trace context from the message and records a
// point-in-time "<topic> receive" span whose parent is the producer span of
// that message. Use ReceiveWithContext to get a context that chains further
// work to the receive span:
//
//	consumer, err := client.Subscribe(pulsar.ConsumerOptions{Topic: "orders", SubscriptionName: "billing"})
//	ctx, msg, err := consumer.(*otxpulsar.TracedConsumer).ReceiveWithContext(ctx)
//
// # Listener
//
// SubscribeWithListener delivers messages to a callback. Each invocation runs
// inside a "<topic> process" span; a returned error or panic marks the span
// failed and still reaches the caller:
//
//	consumer, err := client.SubscribeWithListener(opts, func(ctx context.Context, c pulsar.Consumer, msg pulsar.Message) error {
//	    if err := handle(ctx, msg); err != nil {
//	        return err // nacked by default
//	    }
//	    return c.Ack(msg)
//	})
//	defer consumer.Close()
//
// # Propagation
//
// By default each propagator field (traceparent, tracestate, baggage) is its
// own message property. WithPropagationKey packs them into one JSON property
// instead, for consumers that expect a single well-known key.
//
// Readers are passed through without tracing.
package pulsar
