package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mini-heos/command"
	"mini-heos/message"
)

var ErrTimeout = errors.New("middleware: command timed out")

// TimeoutMiddleware bounds each command to d. The handler sees a context
// with that deadline; if it overruns, ErrTimeout is returned while the
// handler finishes in the background.
func TimeoutMiddleware(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, p command.Payload) (*message.CommandResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type result struct {
				resp *message.CommandResponse
				err  error
			}
			done := make(chan result, 1)
			go func() {
				resp, err := next(ctx, p)
				done <- result{resp, err}
			}()

			select {
			case r := <-done:
				if errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() != nil {
					return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, p.Name(), d)
				}
				return r.resp, r.err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, p.Name(), d)
				}
				return nil, ctx.Err()
			}
		}
	}
}
