package middleware

import (
	"context"
	"fmt"

	"mini-heos/command"
	"mini-heos/message"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware paces commands with a token bucket of r per second
// and the given burst. Callers wait for a token rather than being refused,
// since a device answers excess commands with eid=13 anyway.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, p command.Payload) (*message.CommandResponse, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("middleware: rate limit: %w", err)
			}
			return next(ctx, p)
		}
	}
}
