// Package kit is the transport-agnostic endpoint layer: an Endpoint is one
// capture or export operation, middleware wraps it uniformly, and the
// transport adapters (HTTP handler, MCP tool) decode their own wire shapes
// before handing off.
package kit

import "context"

// Endpoint is a single request/response operation.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middleware left to right: the first wraps outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
