// Package delivery defines the inbound transport abstraction.
package delivery

import "context"

// Delivery is a long-running inbound surface, such as an HTTP server.
type Delivery interface {
	// Serve blocks until the surface stops or ctx is canceled.
	Serve(ctx context.Context) error
}
