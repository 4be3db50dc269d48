// Package main provides the pulsar-sim CLI tool for exercising traced Pulsar
// producers, consumers and an HTTP relay against a real broker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apache/pulsar-client-go/pulsar"
	otx "github.com/arloliu/otx-pulsar"
	"github.com/arloliu/otx-pulsar/cmd/pulsar-sim/engine"
	otxpulsar "github.com/arloliu/otx-pulsar/pulsar"
	log "github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otellogrus"
	"go.opentelemetry.io/otel"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	mode := os.Args[1]
	switch mode {
	case "produce":
		runProduceMode(os.Args[2:])
	case "consume":
		runConsumeMode(os.Args[2:])
	case "relay":
		runRelayMode(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
	default:
		_, _ = fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", mode)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pulsar-sim - traced Apache Pulsar producer, consumer and HTTP relay

Usage:
  pulsar-sim <mode> [flags]

Modes:
  produce  Send messages to a topic
  consume  Receive and acknowledge messages from a topic
  relay    Publish HTTP request bodies to Pulsar

Common Flags:
  --service-url      Pulsar service URL (default: pulsar://localhost:6650)
  --topic            Pulsar topic (default: pulsar-sim)
  --telemetry-config otx telemetry YAML file (overrides the flags below)
  --endpoint         OTLP endpoint (default: localhost:4317)
  --http             Use HTTP instead of gRPC
  --insecure         Skip TLS verification (default: true)
  --console          Print telemetry to stdout instead of OTLP
  --service-name     Service name (default: pulsar-sim)
  --logs             Export OTel log records
  --metrics          Export messaging metrics
  --capture-payload  Record message body size on spans
  --propagation-key  Pack trace context into one message property

Produce Mode Flags:
  --count      Number of messages (default: 10)
  --interval   Pause between messages (default: 1s)
  --payload    Message body prefix
  --key        Message key

Consume Mode Flags:
  --subscription  Subscription name (default: pulsar-sim)
  --count         Stop after this many messages, 0 for no limit (default: 10)

Relay Mode Flags:
  --listen     HTTP listen address (default: :8080)

Environment Variables:
  PULSAR_SERVICE_URL            Pulsar service URL
  PULSAR_TOPIC                  Pulsar topic
  OTX_CONFIG_FILE               otx telemetry YAML file
  OTEL_EXPORTER_OTLP_ENDPOINT   OTLP endpoint
  OTEL_EXPORTER_OTLP_INSECURE   Skip TLS verification
  OTEL_SERVICE_NAME             Service name

Examples:
  pulsar-sim produce --topic orders --count 5 --console
  pulsar-sim consume --topic orders --subscription billing --count 0
  pulsar-sim relay --topic orders --listen :9090
  curl -X POST --data 'hi' localhost:9090/topics/invoices/messages`)
}

func runProduceMode(args []string) {
	cfg := newConfig()
	fs := flag.NewFlagSet("produce", flag.ExitOnError)
	cfg.bindCommonFlags(fs)
	fs.IntVar(&cfg.Count, "count", cfg.Count, "Number of messages")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Pause between messages")
	fs.StringVar(&cfg.Payload, "payload", cfg.Payload, "Message body prefix")
	fs.StringVar(&cfg.Key, "key", cfg.Key, "Message key")

	run(fs, args, cfg, func(ctx context.Context, eng *engine.Engine) error {
		sent, err := eng.Produce(ctx)
		log.WithContext(ctx).Infof("produced %d message(s)", sent)

		return err
	})
}

func runConsumeMode(args []string) {
	cfg := newConfig()
	fs := flag.NewFlagSet("consume", flag.ExitOnError)
	cfg.bindCommonFlags(fs)
	fs.StringVar(&cfg.Subscription, "subscription", cfg.Subscription, "Subscription name")
	fs.IntVar(&cfg.Count, "count", cfg.Count, "Stop after this many messages, 0 for no limit")

	run(fs, args, cfg, func(ctx context.Context, eng *engine.Engine) error {
		handled, err := eng.Consume(ctx)
		log.WithContext(ctx).Infof("consumed %d message(s)", handled)

		return err
	})
}

func runRelayMode(args []string) {
	cfg := newConfig()
	fs := flag.NewFlagSet("relay", flag.ExitOnError)
	cfg.bindCommonFlags(fs)
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "HTTP listen address")

	run(fs, args, cfg, func(ctx context.Context, eng *engine.Engine) error {
		return eng.Relay(ctx, cfg.Listen)
	})
}

func run(fs *flag.FlagSet, args []string, cfg *Config, action func(context.Context, *engine.Engine) error) {
	if err := fs.Parse(args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return
	}

	cfg.applyEnvOverrides()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := execute(ctx, cfg, action); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute bootstraps telemetry and the traced client, runs action, then
// flushes everything.
func execute(ctx context.Context, cfg *Config, action func(context.Context, *engine.Engine) error) (err error) {
	setupLogging()

	telCfg, err := cfg.telemetryConfig()
	if err != nil {
		return fmt.Errorf("load telemetry config: %w", err)
	}

	tel, err := otx.Setup(ctx, telCfg)
	switch {
	case errors.Is(err, otx.ErrDisabled):
		log.Warn("telemetry disabled, spans are not exported")
	case err != nil:
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		err = errors.Join(err, tel.Shutdown(context.Background()))
	}()

	otx.InitTracing(otel.Tracer("pulsar-sim"), nil)

	client, err := otxpulsar.NewClient(pulsar.ClientOptions{URL: cfg.ServiceURL}, cfg.instrumentation()...)
	if err != nil {
		return err
	}
	defer client.Close()

	eng, err := engine.New(client, engine.Config{
		Topic:        cfg.Topic,
		Subscription: cfg.Subscription,
		Count:        cfg.Count,
		Interval:     cfg.Interval,
		Payload:      cfg.Payload,
		Key:          cfg.Key,
	}, log.StandardLogger())
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	return action(ctx, eng)
}

func setupLogging() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.AddHook(otellogrus.NewHook(otellogrus.WithLevels(
		log.PanicLevel,
		log.FatalLevel,
		log.ErrorLevel,
		log.WarnLevel,
		log.InfoLevel,
	)))
}
