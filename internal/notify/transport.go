// Package notify decides whether a run's outcome warrants an alert and
// delivers it over a configurable transport with bounded retries. The
// dispatcher is transport-agnostic: email and webhook are
// interchangeable implementations of one send capability.
package notify

import (
	"context"

	"dqpipe/pkg/contracts/domain"
)

// Transport delivers one message. Implementations must honor the
// context deadline; a timeout counts as a transport failure and is
// retried like any other.
type Transport interface {
	// Name identifies the transport in logs and outcomes.
	Name() string
	// Send delivers the message or returns an error.
	Send(ctx context.Context, msg domain.Message) error
}
