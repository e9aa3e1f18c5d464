package middleware

import (
	"context"
	"errors"
	"time"

	"mini-heos/command"
	"mini-heos/message"
	"mini-heos/metrics"
)

// MetricsMiddleware records command durations by outcome and counts
// device errors by code.
func MetricsMiddleware(c *metrics.Collector) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, p command.Payload) (*message.CommandResponse, error) {
			start := time.Now()
			resp, err := next(ctx, p)

			outcome := metrics.OutcomeSuccess
			var cerr *message.CommandError
			switch {
			case err == nil:
			case errors.As(err, &cerr):
				outcome = metrics.OutcomeFailed
				c.DeviceError(cerr.Message.Code.Code())
			default:
				outcome = metrics.OutcomeError
			}
			c.Command(p.Name(), outcome, time.Since(start))
			return resp, err
		}
	}
}
