// Package context provides timeout helpers for startup checks.
package context

import (
	"context"
	"time"
)

// DefaultPingTimeout bounds connectivity checks made while wiring dependencies.
const DefaultPingTimeout = 5 * time.Second

// WithPingTimeout creates a background context bounded by DefaultPingTimeout.
func WithPingTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), DefaultPingTimeout)
}
