package otx

import (
	"errors"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// supportedPropagators are the OTEL_PROPAGATORS values this module can build.
// Other standard names (b3, jaeger, xray) need contrib packages and are
// reported and skipped.
var supportedPropagators = []string{"tracecontext", "baggage", "none"}

// buildPropagator returns the composite propagator used to write trace
// context into Pulsar message properties. "none" on its own disables
// propagation entirely.
func buildPropagator(cfg *PropConfig) propagation.TextMapPropagator {
	if cfg == nil {
		cfg = &PropConfig{Propagators: defaultPropagators}
	}

	names := splitPropagators(cfg.Propagators)
	for _, name := range names {
		if !slices.Contains(supportedPropagators, name) {
			otel.Handle(errors.New("otx: unsupported propagator \"" + name + "\" in OTEL_PROPAGATORS, ignoring"))
		}
	}

	if len(names) == 1 && names[0] == "none" {
		return propagation.NewCompositeTextMapPropagator()
	}

	var props []propagation.TextMapPropagator
	if cfg.HasTraceContext() {
		props = append(props, propagation.TraceContext{})
	}
	if cfg.HasBaggage() {
		props = append(props, propagation.Baggage{})
	}

	return propagation.NewCompositeTextMapPropagator(props...)
}

// NewPropagator exposes the configured propagator without installing it
// globally, for callers that pass it explicitly to the Pulsar wrappers.
func NewPropagator(cfg *PropConfig) propagation.TextMapPropagator {
	return buildPropagator(cfg)
}
