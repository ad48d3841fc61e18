package dispatch

import (
	"context"

	"github.com/okian/huddle/internal/realtime/session"
	"github.com/okian/huddle/pkg/logger"
)

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDisconnectFunc installs the teardown hook invoked by the disconnect
// event.
func WithDisconnectFunc(fn func(ctx context.Context, conn *session.Conn)) Option {
	return func(d *Dispatcher) {
		d.disconnect = fn
	}
}
