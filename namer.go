package otx

// SpanNamer turns an operation name into the final span name.
type SpanNamer interface {
	Name(operation string) string
}

// DefaultNamer leaves names unchanged.
type DefaultNamer struct{}

// Name returns operation as is.
func (DefaultNamer) Name(operation string) string {
	return operation
}

// PrefixNamer prepends a fixed prefix, e.g. "billing/" → "billing/orders send".
type PrefixNamer struct {
	Prefix string
}

// Name returns the prefixed operation.
func (n PrefixNamer) Name(operation string) string {
	return n.Prefix + operation
}

// NameMessaging builds a messaging span name as "destination operation",
// e.g. "persistent://public/default/orders send".
func NameMessaging(destination, operation string) string {
	if destination == "" {
		return operation
	}

	return destination + " " + operation
}
