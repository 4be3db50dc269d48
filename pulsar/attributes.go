package pulsar

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/apache/pulsar-client-go/pulsar"
	"go.opentelemetry.io/otel/attribute"
)

// Messaging system identifier for Pulsar.
const messagingSystem = "pulsar"

// Attribute keys following OTel messaging semantic conventions.
const (
	attrMessagingSystem          = "messaging.system"
	attrMessagingOperationName   = "messaging.operation.name"
	attrMessagingOperationType   = "messaging.operation.type"
	attrMessagingDestinationName = "messaging.destination.name"
	attrMessagingConsumerGroup   = "messaging.consumer.group.name"
	attrMessagingMessageID       = "messaging.message.id"
	attrMessagingMessageBodySize = "messaging.message.body.size"
	attrMessagingClientID        = "messaging.client.id"
	attrPulsarMessageKey         = "messaging.pulsar.message.key"
	attrPulsarRedeliveryCount    = "messaging.pulsar.redelivery_count"
	attrServerAddress            = "server.address"
	attrServerPort               = "server.port"
	attrErrorType                = "error.type"
)

// Operation names, also used as the span name suffix.
const (
	opSend    = "send"
	opReceive = "receive"
	opProcess = "process"
)

// serverAddress is the first broker host parsed from a Pulsar service URL
// such as "pulsar+ssl://broker-1:6651,broker-2:6651".
type serverAddress struct {
	host string
	port int
}

func parseServiceURL(raw string) serverAddress {
	if raw == "" {
		return serverAddress{}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return serverAddress{}
	}

	hostport, _, _ := strings.Cut(u.Host, ",")
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return serverAddress{host: hostport}
	}

	port, _ := strconv.Atoi(portStr)

	return serverAddress{host: host, port: port}
}

func (a serverAddress) attributes() []attribute.KeyValue {
	if a.host == "" {
		return nil
	}
	attrs := []attribute.KeyValue{attribute.String(attrServerAddress, a.host)}
	if a.port > 0 {
		attrs = append(attrs, attribute.Int(attrServerPort, a.port))
	}

	return attrs
}

// baseAttributes are shared by every span kind.
func baseAttributes(operation, opType, destination string, server serverAddress) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 12)
	attrs = append(attrs,
		attribute.String(attrMessagingSystem, messagingSystem),
		attribute.String(attrMessagingOperationName, operation),
		attribute.String(attrMessagingOperationType, opType),
		attribute.String(attrMessagingDestinationName, destination),
	)

	return append(attrs, server.attributes()...)
}

// sendAttributes returns attributes for a producer send span.
func sendAttributes(cfg Config, server serverAddress, producerName, topic string, msg *pulsar.ProducerMessage) []attribute.KeyValue {
	attrs := baseAttributes(opSend, opSend, topic, server)

	if producerName != "" {
		attrs = append(attrs, attribute.String(attrMessagingClientID, producerName))
	}

	if msg.Key != "" {
		attrs = append(attrs, attribute.String(attrPulsarMessageKey, msg.Key))
	}

	if cfg.CaptureMessagePayload {
		attrs = append(attrs, attribute.Int(attrMessagingMessageBodySize, len(msg.Payload)))
	}

	return attrs
}

// consumeAttributes returns attributes for receive and process spans.
func consumeAttributes(
	cfg Config,
	server serverAddress,
	operation string,
	subscription, consumerName string,
	msg pulsar.Message,
) []attribute.KeyValue {
	attrs := baseAttributes(operation, operation, msg.Topic(), server)

	if subscription != "" {
		attrs = append(attrs, attribute.String(attrMessagingConsumerGroup, subscription))
	}

	if consumerName != "" {
		attrs = append(attrs, attribute.String(attrMessagingClientID, consumerName))
	}

	if id := msg.ID(); id != nil {
		attrs = append(attrs, attribute.String(attrMessagingMessageID, id.String()))
	}

	if key := msg.Key(); key != "" {
		attrs = append(attrs, attribute.String(attrPulsarMessageKey, key))
	}

	if n := msg.RedeliveryCount(); n > 0 {
		attrs = append(attrs, attribute.Int64(attrPulsarRedeliveryCount, int64(n)))
	}

	if cfg.CaptureMessagePayload {
		attrs = append(attrs, attribute.Int(attrMessagingMessageBodySize, len(msg.Payload())))
	}

	return attrs
}

func messageIDAttribute(id pulsar.MessageID) attribute.KeyValue {
	return attribute.String(attrMessagingMessageID, id.String())
}
