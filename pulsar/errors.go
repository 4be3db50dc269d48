package pulsar

import "errors"

var (
	// ErrNilClient is returned by WrapClient when the client is nil.
	ErrNilClient = errors.New("otx/pulsar: client must not be nil")

	// ErrNilListener is returned when a nil Listener is installed.
	ErrNilListener = errors.New("otx/pulsar: listener must not be nil")
)
