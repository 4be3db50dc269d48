// Package otx (OpenTelemetry eXtensions) sets up the OpenTelemetry pipeline
// for services that talk to Apache Pulsar.
//
// # Overview
//
// The otx package wraps the official OTel SDK and provides:
//   - Config-driven providers for traces, metrics and logs ([Setup])
//   - OTel standard sampling (always_on, always_off, traceidratio, parentbased_*)
//   - W3C TraceContext and Baggage propagation selected by OTEL_PROPAGATORS
//   - Pluggable span naming via the [SpanNamer] interface
//
// The Pulsar client instrumentation lives in the otx/pulsar sub-package.
// It uses whatever providers and propagator this package installs.
//
// # Quick Start
//
//	cfg, err := otx.LoadConfig("telemetry.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tel, err := otx.Setup(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
//	client, err := otxpulsar.NewClient(pulsar.ClientOptions{URL: "pulsar://localhost:6650"})
//
// # Configuration
//
// Configure via YAML or environment variables (OTel standard):
//
//	enabled: true
//	serviceName: "orders"          # OTEL_SERVICE_NAME
//	otlp:
//	  endpoint: "collector:4317"   # OTEL_EXPORTER_OTLP_ENDPOINT
//	traces:
//	  exporter: "otlp"             # OTEL_TRACES_EXPORTER
//	  sampling:
//	    sampler: "parentbased_traceidratio"  # OTEL_TRACES_SAMPLER
//	    samplerArg: 0.1                      # OTEL_TRACES_SAMPLER_ARG
//	metrics:
//	  enabled: true
//	propagation:
//	  propagators: "tracecontext,baggage"    # OTEL_PROPAGATORS
//
// # Baggage
//
// Baggage set with [WithBaggage] before a send is injected into the message
// properties and is readable on the consumer side with [GetBaggage].
package otx
