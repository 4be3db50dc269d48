package pulsar

import (
	"context"

	"github.com/apache/pulsar-client-go/pulsar"
)

// Listener handles one pushed message. ctx carries the process span while
// the listener runs. A returned error is handed to the consumer's
// ListenerErrorHandler.
type Listener func(ctx context.Context, consumer pulsar.Consumer, msg pulsar.Message) error

// WrapListener returns a Listener that runs l inside a "<topic> process"
// span parented on the context carried by the message. Errors and panics
// from l mark the span failed and are passed on unchanged.
//
// Panics with ErrNilListener if l is nil.
func WrapListener(l Listener, opts ...Option) Listener {
	if l == nil {
		panic(ErrNilListener)
	}

	return newInstrumenter(applyOptions(opts)).wrapListener(l)
}

func (in *instrumenter) wrapListener(l Listener) Listener {
	return func(ctx context.Context, consumer pulsar.Consumer, msg pulsar.Message) error {
		if msg == nil {
			return l(ctx, consumer, msg)
		}

		var subscription, name string
		if consumer != nil {
			subscription, name = consumer.Subscription(), consumer.Name()
		}

		op := newOperation(opProcess, msg.Topic())
		ctx, span := in.startFromMessage(ctx, op, msg,
			consumeAttributes(in.cfg, in.server, opProcess, subscription, name, msg))
		defer in.finishOnPanic(ctx, span, op)

		err := l(ctx, consumer, msg)
		in.finish(ctx, span, op, err)

		return err
	}
}

// dispatcher feeds messages from a consumer's MessageChannel to a listener
// on its own goroutine. It is owned by a TracedConsumer and stopped by Close.
type dispatcher struct {
	ch       <-chan pulsar.ConsumerMessage
	listener Listener
	onError  ListenerErrorHandler

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newDispatcher(ch <-chan pulsar.ConsumerMessage, listener Listener, onError ListenerErrorHandler) *dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &dispatcher{
		ch:       ch,
		listener: listener,
		onError:  onError,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// run delivers messages until stop is called or the channel is closed.
// consumer is the handle passed to the listener.
func (d *dispatcher) run(consumer pulsar.Consumer) {
	defer close(d.done)

	for {
		select {
		case <-d.ctx.Done():
			return
		case cm, ok := <-d.ch:
			if !ok || d.ctx.Err() != nil {
				return
			}
			if err := d.listener(d.ctx, consumer, cm.Message); err != nil {
				d.onError(d.ctx, consumer, cm.Message, err)
			}
		}
	}
}

// stop cancels the dispatch context. With wait set it also blocks until run
// returns; a listener stopping its own dispatch must not wait.
func (d *dispatcher) stop(wait bool) {
	d.cancel()
	if wait {
		<-d.done
	}
}

// dispatchHandle is the consumer handed to dispatched listeners. Its Close
// stops dispatch without joining the listener call it is made from.
type dispatchHandle struct {
	*TracedConsumer
}

// Close stops dispatch and closes the underlying consumer.
func (h dispatchHandle) Close() {
	h.close(false)
}
