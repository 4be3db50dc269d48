package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	otx "github.com/arloliu/otx-pulsar"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	maxRelayBody    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// relay publishes HTTP request bodies to Pulsar. Producers are created on
// first use per topic and closed together.
type relay struct {
	engine *Engine

	mu        sync.Mutex
	producers map[string]pulsar.Producer
}

type publishResponse struct {
	Topic     string `json:"topic"`
	MessageID string `json:"messageId,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
}

// Handler returns the relay HTTP handler and a function closing its producers.
//
// Routes:
//
//	POST /messages                 publish to the configured topic
//	POST /topics/{topic}/messages  publish to {topic}
//	GET  /healthz
//
// The X-Message-Key header sets the message key. Requests are traced with
// otelhttp so every producer span is a child of the server span.
func (e *Engine) Handler() (http.Handler, func()) {
	r := &relay{engine: e, producers: make(map[string]pulsar.Producer)}

	router := mux.NewRouter()
	router.HandleFunc("/messages", r.publish).Methods(http.MethodPost)
	router.HandleFunc("/topics/{topic}/messages", r.publish).Methods(http.MethodPost)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return otelhttp.NewHandler(router, "relay"), r.close
}

// Relay serves Handler on addr until ctx ends, then shuts the server down.
func (e *Engine) Relay(ctx context.Context, addr string) error {
	handler, closeProducers := e.Handler()
	defer closeProducers()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: shutdownTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	e.log.WithField("addr", addr).Info("relay listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("relay server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("relay shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("relay server: %w", err)
	}

	return nil
}

func (r *relay) publish(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	log := r.engine.log.WithContext(ctx)

	topic := mux.Vars(req)["topic"]
	if topic == "" {
		topic = r.engine.cfg.Topic
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxRelayBody))
	if err != nil {
		log.WithError(err).Warn("read request body")
		http.Error(w, "cannot read body", http.StatusBadRequest)

		return
	}

	producer, err := r.producer(topic)
	if err != nil {
		otx.RecordError(ctx, err)
		log.WithError(err).WithField("topic", topic).Error("create producer")
		http.Error(w, err.Error(), http.StatusBadGateway)

		return
	}

	id, err := producer.Send(ctx, &pulsar.ProducerMessage{
		Payload: body,
		Key:     req.Header.Get("X-Message-Key"),
	})
	if err != nil {
		otx.RecordError(ctx, err)
		log.WithError(err).WithField("topic", topic).Error("relay send failed")
		http.Error(w, err.Error(), http.StatusBadGateway)

		return
	}

	resp := publishResponse{Topic: topic, TraceID: otx.TraceID(ctx)}
	if id != nil {
		resp.MessageID = id.String()
	}
	log.WithField("topic", topic).Info("relayed message")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(resp)
}

func (r *relay) producer(topic string) (pulsar.Producer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.producers[topic]; ok {
		return p, nil
	}

	p, err := r.engine.client.CreateProducer(pulsar.ProducerOptions{Topic: topic})
	if err != nil {
		return nil, fmt.Errorf("create producer for %s: %w", topic, err)
	}
	r.producers[topic] = p

	return p, nil
}

func (r *relay) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for topic, p := range r.producers {
		p.Close()
		delete(r.producers, topic)
	}
}
