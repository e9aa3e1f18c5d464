// Package middleware wraps command execution on the client side.
//
//	Chain(A, B, C)(h) == A(B(C(h)))
//
// A runs first on the way in and last on the way out.
package middleware

import (
	"context"

	"mini-heos/command"
	"mini-heos/message"
)

// HandlerFunc executes one command and returns the device's response.
type HandlerFunc func(ctx context.Context, p command.Payload) (*message.CommandResponse, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares into one.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
