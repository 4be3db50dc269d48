package otx

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"go.opentelemetry.io/otel/baggage"
)

// WithBaggage adds members to the baggage in ctx. Baggage travels with the
// trace context, so members set before a Pulsar send are readable on the
// consumer side. Keys and values must satisfy the W3C Baggage rules; the
// first invalid member aborts and ctx is returned unchanged.
func WithBaggage(ctx context.Context, members map[string]string) (context.Context, error) {
	bag := baggage.FromContext(ctx)
	for _, key := range slices.Sorted(maps.Keys(members)) {
		m, err := baggage.NewMember(key, members[key])
		if err != nil {
			return ctx, fmt.Errorf("otx: baggage member %q: %w", key, err)
		}
		if bag, err = bag.SetMember(m); err != nil {
			return ctx, fmt.Errorf("otx: set baggage member %q: %w", key, err)
		}
	}

	return baggage.ContextWithBaggage(ctx, bag), nil
}

// GetBaggage returns one baggage value, or "".
func GetBaggage(ctx context.Context, key string) string {
	return baggage.FromContext(ctx).Member(key).Value()
}

// AllBaggage returns every baggage member in ctx.
func AllBaggage(ctx context.Context) map[string]string {
	members := baggage.FromContext(ctx).Members()
	out := make(map[string]string, len(members))
	for _, m := range members {
		out[m.Key()] = m.Value()
	}

	return out
}
