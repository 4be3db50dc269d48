// Package tracker holds the process-wide tracer and span namer shared by the
// otx helpers and the Pulsar instrumentation.
package tracker

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
)

// Namer formats span names.
type Namer interface {
	Name(string) string
}

type defaultNamer struct{}

func (defaultNamer) Name(s string) string { return s }

type state struct {
	tracer trace.Tracer
	namer  Namer
}

var global atomic.Pointer[state]

func init() {
	global.Store(&state{namer: defaultNamer{}})
}

// Set replaces the shared tracer and namer.
// If n is nil, defaultNamer is used.
func Set(t trace.Tracer, n Namer) {
	if n == nil {
		n = defaultNamer{}
	}
	global.Store(&state{tracer: t, namer: n})
}

// Start begins a span with the shared tracer. Without a tracer it is a
// no-op that returns ctx and the span already in it.
func Start(ctx context.Context, operation string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	s := global.Load()
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return s.tracer.Start(ctx, s.namer.Name(operation), opts...)
}

// Tracer returns the shared tracer, or nil.
func Tracer() trace.Tracer {
	return global.Load().tracer
}

// Name applies the shared namer.
func Name(operation string) string {
	return global.Load().namer.Name(operation)
}
